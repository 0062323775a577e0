package model

import (
	"fmt"
	"sort"
)

// LabelEncoder maps a finite set of known categorical values to their
// fitted integer codes. Classes are stored sorted, matching the
// fitted ordering, so a class's code is its index.
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

// Encoding is the outcome of encoding one categorical value. When
// the value is unknown to the fitted encoder, FallbackUsed is true
// and Substituted names the class that was encoded instead.
type Encoding struct {
	Code         float64
	FallbackUsed bool
	Original     string
	Substituted  string
}

// EncodeOrFallback encodes value if known. An unknown value encodes
// as the encoder's first known class so the model stays evaluable on
// the remaining features; the substitution is reported, not hidden.
func (e *LabelEncoder) EncodeOrFallback(value string) (Encoding, error) {
	if len(e.Classes) == 0 {
		return Encoding{}, fmt.Errorf("encoder has no classes")
	}

	if i := sort.SearchStrings(e.Classes, value); i < len(e.Classes) && e.Classes[i] == value {
		return Encoding{Code: float64(i), Original: value}, nil
	}

	return Encoding{
		Code:         0,
		FallbackUsed: true,
		Original:     value,
		Substituted:  e.Classes[0],
	}, nil
}
