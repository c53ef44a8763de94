package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jobrunner/georef/internal/domain"
)

// initCode extracts n from "+init=epsg:n".
func initCode(definition string) (int, error) {
	for _, token := range strings.Fields(definition) {
		token = strings.TrimPrefix(token, "+")
		key, value, ok := strings.Cut(token, "=")
		if !ok || !strings.EqualFold(key, "init") {
			continue
		}
		authority, code, ok := strings.Cut(value, ":")
		if !ok || !strings.EqualFold(authority, "epsg") {
			return 0, fmt.Errorf("%s: %w", value, domain.ErrUnsupported)
		}
		n, err := strconv.Atoi(code)
		if err != nil || n < 1 {
			return 0, fmt.Errorf("%s: %w", value, domain.ErrInvalidSRID)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%q has no +init: %w", definition, domain.ErrInvalidInput)
}

// expandEPSG returns the parameter string of the codes every engine
// knows without a database.
func expandEPSG(code int) (string, bool) {
	switch {
	case code == 4326:
		return "+proj=longlat +datum=WGS84 +no_defs", true
	case code == 4258:
		return "+proj=longlat +ellps=GRS80 +no_defs", true
	case code == 3857:
		return "+proj=merc +a=6378137 +b=6378137 +lon_0=0 +x_0=0 +y_0=0 +k=1 +units=m +nadgrids=@null +wktext +no_defs", true
	case code > 32600 && code <= 32660:
		return fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", code-32600), true
	case code > 32700 && code <= 32760:
		return fmt.Sprintf("+proj=utm +zone=%d +south +datum=WGS84 +units=m +no_defs", code-32700), true
	case code >= 25828 && code <= 25838:
		return fmt.Sprintf("+proj=utm +zone=%d +ellps=GRS80 +units=m +no_defs", code-25800), true
	}
	return "", false
}

// expand implements Expand for engines without their own database.
func expand(definition string) (string, error) {
	code, err := initCode(definition)
	if err != nil {
		return "", &domain.EngineError{Operation: "expand", Message: "bad +init", Err: err}
	}
	params, ok := expandEPSG(code)
	if !ok {
		return "", &domain.EngineError{
			Operation: "expand",
			Message:   fmt.Sprintf("no parameters for EPSG:%d", code),
			Err:       domain.ErrUnsupported,
		}
	}
	return params, nil
}
