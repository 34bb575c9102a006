package model

// KlineQuery binds the query string of the kline endpoint.
type KlineQuery struct {
	Period string `form:"period"`
	Limit  int    `form:"limit"`
}

// VolatilityQuery binds the query string of the volatility endpoint.
// Years is a comma separated list such as "1,3,5,10".
type VolatilityQuery struct {
	Years string `form:"years"`
}

// HistoryQuery binds the query string of the history endpoint.
type HistoryQuery struct {
	Months  int  `form:"months"`
	Refresh bool `form:"refresh"`
}
