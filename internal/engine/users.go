package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wp-pump/internal/store"
)

type usersStage struct{}

func (usersStage) Name() string         { return "users" }
func (usersStage) Reads() []store.Kind  { return nil }
func (usersStage) Writes() []store.Kind { return []store.Kind{store.KindUser} }

func (usersStage) Run(ctx context.Context, im *importer) error {
	users := im.set.Users()
	meta := im.set.UserMeta()
	capsKey := im.set.Layout.Prefix + "capabilities"

	return im.each(ctx, "users", store.KindUser, len(users), false, func(ctx context.Context, i int, lg *rowLog) error {
		u := users[i]
		lg.at(u.Ref())
		if u.Login() == "" && u.Email() == "" {
			return fmt.Errorf("user %d has neither login nor email", u.ID())
		}

		m := meta[u.ID()]
		attrs := store.Attributes{
			"username":     u.Login(),
			"email":        strings.TrimSpace(u.Email()),
			"display_name": firstNonEmpty(u.DisplayName(), m.Get("nickname"), u.Login()),
			"slug":         Slugify(firstNonEmpty(u.Nicename(), u.Login())),
			"url":          u.URL(),
			"first_name":   m.Get("first_name"),
			"last_name":    m.Get("last_name"),
			"nickname":     m.Get("nickname"),
			"bio":          m.Get("description"),
			"role":         firstNonEmpty(userRole(m.Get(capsKey)), "subscriber"),
		}
		setDate(attrs, "registered_at", u.Registered())

		_, err := im.put(ctx, lg, store.KindUser, u.ID(), attrs)
		var ce *store.ConflictError
		if !errors.As(err, &ce) {
			return err
		}

		// Duplicate account: skip it and let its content point at the owner.
		lg.stat(store.KindUser).Skipped++
		lg.warn(DuplicateSkipped, store.KindUser, "%s %q already belongs to %s", ce.Attr, ce.Value, ce.OwnerKey)
		if id, ok, err := im.find(ctx, store.KindUser, ce.OwnerKey); err != nil {
			return err
		} else if ok {
			im.remaps.Table(store.KindUser).Set(u.ID(), id)
		}
		return nil
	})
}
