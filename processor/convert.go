package processor

import (
	"errors"
	"fmt"

	"cryptocalc/models"
)

// ErrInvalidPrice marks an asset whose price cannot be divided by.
var ErrInvalidPrice = errors.New("invalid asset price")

// Conversion is the result of converting a fiat amount into one asset.
type Conversion struct {
	Asset           models.Asset
	AssetQuantity   float64
	SubunitQuantity float64
}

// Convert divides amount by the asset price and scales the quotient to the
// asset's smallest subunit. A non-positive price yields ErrInvalidPrice.
func Convert(amount float64, asset models.Asset) (Conversion, error) {
	if asset.CurrentPrice <= 0 {
		return Conversion{}, fmt.Errorf("%w: %s priced at %v", ErrInvalidPrice, asset.ID, asset.CurrentPrice)
	}
	qty := amount / asset.CurrentPrice
	return Conversion{
		Asset:           asset,
		AssetQuantity:   qty,
		SubunitQuantity: qty * float64(asset.SubunitFactor),
	}, nil
}

// ConvertAll converts amount into every asset, in order. Assets that fail
// conversion are dropped and returned separately.
func ConvertAll(amount float64, assets []models.Asset) ([]Conversion, []error) {
	out := make([]Conversion, 0, len(assets))
	var errs []error
	for _, a := range assets {
		c, err := Convert(amount, a)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, c)
	}
	return out, errs
}
