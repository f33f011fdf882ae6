package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MartinDM/data-app/internal/domain"
)

var (
	// ErrLookupFailed covers transport errors, non-2xx responses and bodies
	// that cannot be decoded.
	ErrLookupFailed = errors.New("geocode lookup failed")
	// ErrMissingToken is returned when no access token is configured. It also
	// matches ErrLookupFailed.
	ErrMissingToken = fmt.Errorf("%w: missing access token", ErrLookupFailed)
	// ErrAddressNotFound means the lookup succeeded but produced no address.
	ErrAddressNotFound = errors.New("address not found")
	// ErrInvalidCoordinates rejects points outside the valid lat/lng range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Resolver turns a coordinate pair into a readable address.
type Resolver interface {
	Reverse(ctx context.Context, point domain.Coordinates) (string, error)
}

// Feature is the part of a reverse-geocode feature used to build an address.
type Feature struct {
	Properties struct {
		FullAddress string `json:"full_address"`
		Context     struct {
			Address  *named `json:"address"`
			Street   *named `json:"street"`
			Postcode *named `json:"postcode"`
			Country  *named `json:"country"`
		} `json:"context"`
	} `json:"properties"`
}

type named struct {
	Name string `json:"name"`
}

func (n *named) value() string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.Name)
}

// FeatureCollection is the reverse-geocode response body.
type FeatureCollection struct {
	Features []Feature `json:"features"`
}

// Address joins street, postcode and country of the first feature. The street
// falls back to the address name.
func (fc FeatureCollection) Address() (string, error) {
	if len(fc.Features) == 0 {
		return "", ErrAddressNotFound
	}
	ctx := fc.Features[0].Properties.Context

	street := ctx.Street.value()
	if street == "" {
		street = ctx.Address.value()
	}

	parts := make([]string, 0, 3)
	for _, part := range []string{street, ctx.Postcode.value(), ctx.Country.value()} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "", ErrAddressNotFound
	}
	return strings.Join(parts, ", "), nil
}

func validPoint(p domain.Coordinates) error {
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: %v,%v", ErrInvalidCoordinates, p.Lat, p.Lng)
	}
	return nil
}
