package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jobrunner/georef/internal/domain"
	"github.com/jobrunner/georef/internal/domain/srs"
)

// FromUserInput builds a definition from free-form text: an EPSG code
// ("4326", "EPSG:4326", "urn:ogc:def:crs:EPSG::4326"), an engine
// parameter string starting with '+', or WKT.
func (r *Resolver) FromUserInput(ctx context.Context, text string) (*srs.Definition, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyDefinition
	}

	if code, ok := parseEPSGCode(text); ok {
		return r.Resolve(ctx, code)
	}

	if strings.HasPrefix(text, "+") {
		d := srs.New()
		if err := d.ImportFromProjString(text, r.GeogCSLookup(ctx)); err != nil {
			return nil, err
		}
		return d, nil
	}

	d, err := srs.NewFromWKT(text)
	if err != nil {
		return nil, fmt.Errorf("parsing definition: %w", err)
	}
	return d, nil
}

func parseEPSGCode(text string) (int, bool) {
	s := text
	for _, prefix := range []string{"urn:ogc:def:crs:EPSG::", "urn:ogc:def:crs:EPSG:", "EPSGA:", "EPSG:"} {
		if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
			s = s[len(prefix):]
			break
		}
	}
	code, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return code, true
}
