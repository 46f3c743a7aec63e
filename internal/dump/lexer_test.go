package dump_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"wp-pump/internal/dump"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, src string, opts ...dump.Option) []*dump.Statement {
	t.Helper()
	l := dump.NewLexer(strings.NewReader(src), opts...)
	var out []*dump.Statement
	for {
		st, err := l.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, st)
	}
}

func TestLexer_MultiRowInsert(t *testing.T) {
	src := "INSERT INTO wp_posts (ID,post_title,post_type) VALUES (1,'Hello','post'),(2,'A \\'Page\\'','page');"
	stmts := readAll(t, src)
	require.Len(t, stmts, 1)

	st := stmts[0]
	assert.Equal(t, dump.Insert, st.Kind)
	assert.Equal(t, "wp_posts", st.Table)
	assert.Equal(t, []string{"ID", "post_title", "post_type"}, st.Columns)
	require.Len(t, st.Rows, 2)
	assert.Equal(t, dump.IntValue(1), st.Rows[0][0])
	assert.Equal(t, "Hello", st.Rows[0][1].String())
	assert.Equal(t, "A 'Page'", st.Rows[1][1].String())
	assert.Equal(t, "page", st.Rows[1][2].String())
}

func TestLexer_RowCountMatchesTuples(t *testing.T) {
	for _, n := range []int{1, 2, 7, 50} {
		var sb strings.Builder
		sb.WriteString("INSERT INTO `t` (`a`,`b`) VALUES ")
		for i := 0; i < n; i++ {
			if i > 0 {
				sb.WriteString(",\n")
			}
			sb.WriteString("(1,'x;y')")
		}
		sb.WriteString(";")
		stmts := readAll(t, sb.String())
		require.Len(t, stmts, 1)
		assert.Len(t, stmts[0].Rows, n)
	}
}

func TestLexer_StringEscapes(t *testing.T) {
	tests := []struct {
		name string
		lit  string
		want string
	}{
		{"escaped quote", `'it\'s'`, "it's"},
		{"escaped backslash", `'a\\b'`, `a\b`},
		{"doubled quote", `'it''s'`, "it's"},
		{"all three", `'\'\\'''`, `'\'`},
		{"control escapes", `'a\nb\tc\rd\0e'`, "a\nb\tc\rd\x00e"},
		{"ctrl-z", `'\Z'`, "\x1a"},
		{"unknown escape", `'\%\_\q'`, "%_q"},
		{"double quoted", `"say ""hi"""`, `say "hi"`},
		{"semicolon inside", `'a;b'`, "a;b"},
		{"charset introducer", `_utf8mb4'héllo'`, "héllo"},
		{"binary introducer", `_binary 'raw'`, "raw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts := readAll(t, "INSERT INTO t (v) VALUES ("+tt.lit+");")
			require.Len(t, stmts, 1)
			v := stmts[0].Rows[0][0]
			assert.Equal(t, dump.String, v.Kind)
			assert.Equal(t, tt.want, v.String())
		})
	}
}

func TestLexer_BareValues(t *testing.T) {
	stmts := readAll(t, "INSERT INTO t (a,b,c,d,e,f,g,h) VALUES (NULL,null,42,-7,3.14,TRUE,false,CURRENT_TIMESTAMP);")
	require.Len(t, stmts, 1)
	row := stmts[0].Rows[0]

	assert.True(t, row[0].IsNull())
	assert.True(t, row[1].IsNull())
	assert.Equal(t, dump.Int, row[2].Kind)
	assert.EqualValues(t, 42, row[2].I)
	assert.EqualValues(t, -7, row[3].I)
	assert.Equal(t, dump.Float, row[4].Kind)
	assert.InDelta(t, 3.14, row[4].F, 1e-9)
	assert.Equal(t, dump.IntValue(1), row[5])
	assert.Equal(t, dump.IntValue(0), row[6])
	assert.Equal(t, dump.StringValue("CURRENT_TIMESTAMP"), row[7])
}

func TestLexer_SkipsOtherStatementsAndComments(t *testing.T) {
	src := `-- MySQL dump 10.13
/*!40101 SET @OLD_CHARACTER_SET_CLIENT=@@CHARACTER_SET_CLIENT */;
# hash comment
DROP TABLE IF EXISTS ` + "`wp_users`" + `;
SET NAMES 'x;y';
CREATE TABLE ` + "`wp_users`" + ` (
  ` + "`ID`" + ` bigint(20) unsigned NOT NULL AUTO_INCREMENT,
  ` + "`user_login`" + ` varchar(60) NOT NULL DEFAULT '',
  ` + "`user_email`" + ` varchar(100) NOT NULL DEFAULT '' COMMENT 'a, b',
  PRIMARY KEY (` + "`ID`" + `),
  KEY ` + "`user_login_key`" + ` (` + "`user_login`" + `)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
LOCK TABLES ` + "`wp_users`" + ` WRITE;
INSERT INTO ` + "`wp_users`" + ` VALUES (1,'admin','a@example.com');
UNLOCK TABLES;
`
	stmts := readAll(t, src)
	require.Len(t, stmts, 2)

	assert.Equal(t, dump.CreateTable, stmts[0].Kind)
	assert.Equal(t, []string{"ID", "user_login", "user_email"}, stmts[0].Columns)

	ins := stmts[1]
	assert.Equal(t, dump.Insert, ins.Kind)
	assert.Equal(t, "wp_users", ins.Table)
	assert.Equal(t, []string{"ID", "user_login", "user_email"}, ins.Columns, "columns come from CREATE TABLE")
	assert.Equal(t, "a@example.com", ins.Rows[0][2].String())
}

func TestLexer_PositionalColumnsWithoutHeader(t *testing.T) {
	stmts := readAll(t, "INSERT INTO orphan VALUES (1,'a'),(2,'b');")
	require.Len(t, stmts, 1)
	assert.Equal(t, []string{"0", "1"}, stmts[0].Columns)
	assert.Len(t, stmts[0].Rows, 2)
}

func TestLexer_InsertModifiersAndQualifiedNames(t *testing.T) {
	stmts := readAll(t, "INSERT IGNORE INTO `blog`.`wp_options` (option_name, option_value) VALUES ('siteurl','http://x');")
	require.Len(t, stmts, 1)
	assert.Equal(t, "wp_options", stmts[0].Table)
	assert.Equal(t, "http://x", stmts[0].Rows[0][1].String())
}

func TestLexer_HeadersOnly(t *testing.T) {
	src := "INSERT INTO wp_posts (ID) VALUES (1),(2);\nINSERT INTO wp_users (ID) VALUES ('a;b');"
	stmts := readAll(t, src, dump.HeadersOnly())
	require.Len(t, stmts, 2)
	assert.Equal(t, "wp_posts", stmts[0].Table)
	assert.Nil(t, stmts[0].Rows)
	assert.Equal(t, "wp_users", stmts[1].Table)
}

func TestLexer_Windows1252Fallback(t *testing.T) {
	src := []byte("INSERT INTO t (v) VALUES ('caf\xe9 \x93quoted\x94');")
	stmts := readAll(t, string(src))
	require.Len(t, stmts, 1)
	assert.Equal(t, "café “quoted”", stmts[0].Rows[0][0].String())
}

func TestLexer_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		reason string
	}{
		{"unterminated string", "INSERT INTO t (a) VALUES ('oops);", "unterminated"},
		{"arity mismatch", "INSERT INTO t (a,b) VALUES (1,2),(3);", "row 2 has 1 values, expected 2"},
		{"broken tuple", "INSERT INTO t (a) VALUES (1 2);", "expected ',' or ')'"},
		{"empty value", "INSERT INTO t (a,b) VALUES (1,);", "empty value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := dump.NewLexer(strings.NewReader(tt.src))
			_, err := l.Next()
			require.Error(t, err)
			assert.ErrorIs(t, err, dump.ErrMalformedStatement)

			var me *dump.MalformedStatementError
			require.ErrorAs(t, err, &me)
			assert.Contains(t, me.Reason, tt.reason)
			assert.GreaterOrEqual(t, me.Offset, int64(0))
		})
	}
}

func TestLexer_ContinuesAfterMalformed(t *testing.T) {
	src := "INSERT INTO t (a,b) VALUES (1);\nINSERT INTO t (a) VALUES (2);"
	l := dump.NewLexer(strings.NewReader(src))

	_, err := l.Next()
	require.ErrorIs(t, err, dump.ErrMalformedStatement)

	st, err := l.Next()
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.Rows[0][0].I)

	_, err = l.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestLexer_OffsetsTrackStatementStart(t *testing.T) {
	src := "SET x=1;\nINSERT INTO t (a) VALUES (1);"
	stmts := readAll(t, src)
	require.Len(t, stmts, 1)
	assert.EqualValues(t, strings.Index(src, "INSERT"), stmts[0].Offset)
}

func TestValue_Int64(t *testing.T) {
	v, ok := dump.StringValue(" 12 ").Int64()
	assert.True(t, ok)
	assert.EqualValues(t, 12, v)

	_, ok = dump.StringValue("abc").Int64()
	assert.False(t, ok)

	_, ok = dump.NullValue().Int64()
	assert.False(t, ok)

	v, ok = dump.FloatValue(3, "3.0").Int64()
	assert.True(t, ok)
	assert.EqualValues(t, 3, v)
}
