package filter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"media-filter/internal/mediatypes"
)

// Parameter names as they appear in forms, query strings and JSON bodies.
const (
	ParamBrightness = "brightness"
	ParamContrast   = "contrast"
	ParamSharpness  = "sharpness"
)

// Parameters are the user-adjustable filter values. Grayscale is implicit and
// always on.
type Parameters struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Sharpness  float64 `json:"sharpness"`
}

// Defaults returns brightness 100, contrast 100, sharpness 0.
func Defaults() Parameters {
	return Parameters{Brightness: 100, Contrast: 100, Sharpness: 0}
}

// Validate reports ErrInvalidParameter for any non-finite value.
func (p Parameters) Validate() error {
	for _, v := range []struct {
		name  string
		value float64
	}{
		{ParamBrightness, p.Brightness},
		{ParamContrast, p.Contrast},
		{ParamSharpness, p.Sharpness},
	} {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			return fmt.Errorf("%w: %s must be a finite number", mediatypes.ErrInvalidParameter, v.name)
		}
	}
	return nil
}

// Range is the accepted domain of one parameter.
type Range struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// Clamp bounds v to [Min, Max]. NaN yields Default.
func (r Range) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return r.Default
	}
	return math.Max(r.Min, math.Min(r.Max, v))
}

// Profile is a named set of parameter domains.
type Profile struct {
	Name       string `json:"name"`
	Brightness Range  `json:"brightness"`
	Contrast   Range  `json:"contrast"`
	Sharpness  Range  `json:"sharpness"`
}

var (
	// ProfileSimple matches the compact editor: brightness and contrast in
	// [50,150], sharpness in [-50,50].
	ProfileSimple = Profile{
		Name:       "simple",
		Brightness: Range{Min: 50, Max: 150, Default: 100},
		Contrast:   Range{Min: 50, Max: 150, Default: 100},
		Sharpness:  Range{Min: -50, Max: 50, Default: 0},
	}

	// ProfileExtended is the full editor and the default profile.
	ProfileExtended = Profile{
		Name:       "extended",
		Brightness: Range{Min: 0, Max: 200, Default: 100},
		Contrast:   Range{Min: 0, Max: 200, Default: 100},
		Sharpness:  Range{Min: -100, Max: 100, Default: 0},
	}
)

// ProfileByName resolves a profile name, case-insensitively. An empty name
// selects ProfileExtended.
func ProfileByName(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProfileExtended.Name:
		return ProfileExtended, nil
	case ProfileSimple.Name:
		return ProfileSimple, nil
	default:
		return Profile{}, fmt.Errorf("unknown filter profile %q", name)
	}
}

// Defaults returns the profile's default parameters.
func (pr Profile) Defaults() Parameters {
	return Parameters{
		Brightness: pr.Brightness.Default,
		Contrast:   pr.Contrast.Default,
		Sharpness:  pr.Sharpness.Default,
	}
}

// Clamp bounds every parameter to the profile's domain.
func (pr Profile) Clamp(p Parameters) Parameters {
	return Parameters{
		Brightness: pr.Brightness.Clamp(p.Brightness),
		Contrast:   pr.Contrast.Clamp(p.Contrast),
		Sharpness:  pr.Sharpness.Clamp(p.Sharpness),
	}
}

// Check reports ErrInvalidParameter for any value outside the profile's domain.
func (pr Profile) Check(p Parameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	for _, v := range []struct {
		name  string
		value float64
		r     Range
	}{
		{ParamBrightness, p.Brightness, pr.Brightness},
		{ParamContrast, p.Contrast, pr.Contrast},
		{ParamSharpness, p.Sharpness, pr.Sharpness},
	} {
		if v.value < v.r.Min || v.value > v.r.Max {
			return fmt.Errorf("%w: %s %g outside [%g, %g]", mediatypes.ErrInvalidParameter, v.name, v.value, v.r.Min, v.r.Max)
		}
	}
	return nil
}

// ParseValue parses a single raw control value. Non-numeric and non-finite
// input is rejected with ErrInvalidParameter.
func ParseValue(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not a finite number", mediatypes.ErrInvalidParameter, raw)
	}
	return v, nil
}

// ParseForm reads brightness, contrast and sharpness through get. Missing
// values take the profile default; present values are parsed then clamped.
func (pr Profile) ParseForm(get func(string) string) (Parameters, error) {
	return pr.ParseFormOver(pr.Defaults(), get)
}

// ParseFormStrict is ParseForm without clamping: out-of-range values are
// rejected with ErrInvalidParameter.
func (pr Profile) ParseFormStrict(get func(string) string) (Parameters, error) {
	out, err := parseOver(pr.Defaults(), get)
	if err != nil {
		return Parameters{}, err
	}
	if err := pr.Check(out); err != nil {
		return Parameters{}, err
	}
	return out, nil
}

// ParseFormOver is ParseForm with base supplying the values for missing keys.
func (pr Profile) ParseFormOver(base Parameters, get func(string) string) (Parameters, error) {
	out, err := parseOver(base, get)
	if err != nil {
		return Parameters{}, err
	}
	return pr.Clamp(out), nil
}

func parseOver(base Parameters, get func(string) string) (Parameters, error) {
	out := base
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{ParamBrightness, &out.Brightness},
		{ParamContrast, &out.Contrast},
		{ParamSharpness, &out.Sharpness},
	} {
		raw := get(f.name)
		if strings.TrimSpace(raw) == "" {
			continue
		}
		v, err := ParseValue(raw)
		if err != nil {
			return Parameters{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}
	return out, nil
}
