package models

// Requests for the OTC HTTP endpoints.

type InitializeSymbolRequest struct {
	SymbolConfig
	StartPrice float64 `json:"start_price" validate:"gt=0"`
}

type ReferencePriceRequest struct {
	Price float64 `json:"price" validate:"gt=0"`
}

type TickHistoryRequest struct {
	Symbol string `query:"symbol" validate:"required"`
	From   string `query:"from"`
	To     string `query:"to"`
	Limit  int    `query:"limit" default:"1000" validate:"gte=1,lte=50000"`
}
