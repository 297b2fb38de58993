package api

import (
	"time"

	"cryptocalc/internal/currency"
	"cryptocalc/internal/state"
	"cryptocalc/models"
	"cryptocalc/processor"
)

// View is the calculator screen as data. Prices and commentary are only
// merged here; they are stored and refreshed independently.
type View struct {
	Currency    currency.Currency `json:"currency"`
	Input       string            `json:"input"`
	Amount      string            `json:"amount"`
	Status      state.Status      `json:"status"`
	Loading     bool              `json:"loading"`
	Error       string            `json:"error,omitempty"`
	LastUpdated *time.Time        `json:"last_updated"`
	Insight     *models.Insight   `json:"insight"`
	Conversions []ConversionView  `json:"conversions"`
}

// ConversionView is one asset row with raw numbers and display strings.
type ConversionView struct {
	ID              string  `json:"id"`
	Symbol          string  `json:"symbol"`
	Name            string  `json:"name"`
	Image           string  `json:"image"`
	Price           float64 `json:"price"`
	PriceDisplay    string  `json:"price_display"`
	Change24h       float64 `json:"change_24h"`
	ChangeDisplay   string  `json:"change_24h_display"`
	Quantity        float64 `json:"quantity"`
	QuantityDisplay string  `json:"quantity_display"`
	SubunitName     string  `json:"subunit_name"`
	Subunits        float64 `json:"subunits"`
	SubunitsDisplay string  `json:"subunits_display"`
}

// NewView renders st. Assets whose price cannot be converted are left out.
func NewView(st state.AppState) View {
	n := st.Currency.Numeral
	conversions, _ := processor.ConvertAll(st.Input.Float64(), st.Market.Ordered())

	rows := make([]ConversionView, 0, len(conversions))
	for _, c := range conversions {
		a := c.Asset
		rows = append(rows, ConversionView{
			ID:              a.ID,
			Symbol:          a.Symbol,
			Name:            a.Name,
			Image:           a.Image,
			Price:           a.CurrentPrice,
			PriceDisplay:    st.Currency.Symbol + " " + processor.FormatPrice(n, a.CurrentPrice),
			Change24h:       a.PriceChange24h,
			ChangeDisplay:   processor.FormatChange(n, a.PriceChange24h) + "%",
			Quantity:        c.AssetQuantity,
			QuantityDisplay: processor.FormatAssetQuantity(n, c.AssetQuantity),
			SubunitName:     a.SubunitName,
			Subunits:        c.SubunitQuantity,
			SubunitsDisplay: processor.FormatSubunits(n, c.SubunitQuantity),
		})
	}

	return View{
		Currency:    st.Currency,
		Input:       st.Input.Display(),
		Amount:      st.Input.Amount().String(),
		Status:      st.Status,
		Loading:     st.Market.Loading,
		Error:       st.Market.Error,
		LastUpdated: st.Market.LastUpdated,
		Insight:     st.Insight,
		Conversions: rows,
	}
}
