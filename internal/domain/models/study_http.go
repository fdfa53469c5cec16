package models

// Requests for study HTTP endpoints. Defined in domain for consistency and reuse.

type SpreadsRequest struct {
	Asset string `query:"asset" json:"asset" default:"btc_usd" validate:"oneof=btc_usd sp500 gold"`
}

type CompositeRequest struct {
	Method string `query:"method" json:"method" default:"z_average" validate:"oneof=z_average pca"`
}

type RegressionsRequest struct {
	Sample string `query:"sample" json:"sample" default:"full" validate:"oneof=full pre_break post_break"`
}

type RollingRequest struct {
	Asset string `query:"asset" json:"asset" validate:"required,oneof=btc_usd sp500 gold"`
}

type RegimesRequest struct{}
