package shared

import "context"

type shopContextKey struct{}

// ContextWithShop stores the authenticated shop id in context.
func ContextWithShop(ctx context.Context, shopID int64) context.Context {
	return context.WithValue(ctx, shopContextKey{}, shopID)
}

// ShopFromContext extracts the authenticated shop id, zero when absent.
func ShopFromContext(ctx context.Context) int64 {
	shopID, _ := ctx.Value(shopContextKey{}).(int64)
	return shopID
}
