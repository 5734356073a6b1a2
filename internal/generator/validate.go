package generator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/adgen/internal/captions"
)

// MinScriptLength is the minimum trimmed length of a script, in characters.
const MinScriptLength = 10

// inputs mirrors the validated fields of a Request.
type inputs struct {
	Script      string   `validate:"trimmed_min=10"`
	CreatorName string   `validate:"notblank"`
	Resolution  string   `validate:"resolution"`
	MediaURLs   []string `validate:"omitempty,dive,http_url"`
}

// NewValidator returns a validator with the custom tags notblank,
// trimmed_min and resolution registered.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Registration only fails for empty tags or nil functions.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("trimmed_min", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= n
	})
	_ = v.RegisterValidation("resolution", func(fl validator.FieldLevel) bool {
		_, ok := captions.ParseResolution(fl.Field().String())
		return ok
	})

	return v
}

// ValidateInputs checks the script, creator and resolution of a request
// without touching the network.
func (g *Generator) ValidateInputs(script, creatorName, resolution string) error {
	return g.check(inputs{
		Script:      script,
		CreatorName: creatorName,
		Resolution:  resolution,
	})
}

// validateRequest runs ValidateInputs plus the media URL checks.
func (g *Generator) validateRequest(req Request) error {
	return g.check(inputs{
		Script:      req.Script,
		CreatorName: req.CreatorName,
		Resolution:  req.Resolution,
		MediaURLs:   req.MediaURLs,
	})
}

func (g *Generator) check(in inputs) error {
	err := g.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &captions.Error{Kind: captions.KindValidation, Op: "validate", Err: err}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return &captions.Error{
		Kind:   captions.KindValidation,
		Op:     "validate",
		Detail: strings.Join(msgs, "; "),
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch {
	case fe.StructField() == "Script":
		return fmt.Sprintf("script must be at least %d characters long", MinScriptLength)
	case fe.StructField() == "CreatorName":
		return "creator name is required"
	case fe.StructField() == "Resolution":
		names := make([]string, len(captions.Resolutions))
		for i, r := range captions.Resolutions {
			names[i] = string(r)
		}
		return fmt.Sprintf("invalid resolution %q: must be one of %s", fe.Value(), strings.Join(names, ", "))
	case strings.HasPrefix(fe.StructField(), "MediaURLs"):
		return fmt.Sprintf("invalid media URL %q", fe.Value())
	default:
		return fe.Error()
	}
}
