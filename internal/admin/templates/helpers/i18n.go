package helpers

import (
	"context"

	"finitefield.org/tutor-admin/internal/admin/i18n"
)

// T translates key for the request locale.
func T(ctx context.Context, key string) string {
	return i18n.T(ctx, key)
}

// Locale returns the request locale.
func Locale(ctx context.Context) string {
	return i18n.LocaleFromContext(ctx)
}
