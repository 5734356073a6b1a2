// Package product loads the product description file consumed by the
// generate command.
package product

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/adgen/internal/captions"
	"github.com/maauso/adgen/internal/generator"
)

// DefaultFile is the product file read when none is named.
const DefaultFile = "product.json"

// Product describes one ad to generate.
type Product struct {
	Script      string   `json:"script" validate:"required,trimmed_min=10"`
	CreatorName string   `json:"creatorName" validate:"notblank"`
	MediaURLs   []string `json:"mediaUrls" validate:"required,min=1,dive,http_url"`
	WebhookID   string   `json:"webhookId"` // null or absent means no webhook
	Resolution  string   `json:"resolution" validate:"required,oneof=fhd hd 4k"`
}

// Load reads and validates the product file at path.
func Load(path string) (*Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &captions.Error{
				Kind:   captions.KindConfiguration,
				Op:     "load product",
				Detail: "product file not found: " + path,
			}
		}
		return nil, fmt.Errorf("product: read %s: %w", path, err)
	}

	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &captions.Error{
			Kind:   captions.KindValidation,
			Op:     "load product",
			Detail: "invalid JSON in " + path,
			Err:    err,
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate reports every missing or invalid field at once.
func (p *Product) Validate() error {
	v := generator.NewValidator()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})

	err := v.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &captions.Error{Kind: captions.KindValidation, Op: "validate product", Err: err}
	}

	var missing, invalid []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "notblank", "min":
			missing = append(missing, fe.Field())
		default:
			invalid = append(invalid, fieldMessage(fe))
		}
	}

	var msgs []string
	if len(missing) > 0 {
		msgs = append(msgs, "missing or invalid required fields: "+strings.Join(missing, ", "))
	}
	msgs = append(msgs, invalid...)

	return &captions.Error{
		Kind:   captions.KindValidation,
		Op:     "validate product",
		Detail: strings.Join(msgs, "; "),
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch {
	case fe.Field() == "script":
		return fmt.Sprintf("script must be at least %d characters long", generator.MinScriptLength)
	case fe.Field() == "resolution":
		return fmt.Sprintf("invalid resolution %q: must be one of fhd, hd, 4k", fe.Value())
	case strings.HasPrefix(fe.Field(), "mediaUrls"):
		return fmt.Sprintf("invalid media URL %s: %q", fe.Field(), fe.Value())
	default:
		return fe.Error()
	}
}

// Request converts p into a generator.Request writing to outputDir.
// An empty filename lets the generator derive one.
func (p *Product) Request(outputDir, filename string) generator.Request {
	return generator.Request{
		Script:      p.Script,
		CreatorName: p.CreatorName,
		MediaURLs:   p.MediaURLs,
		Resolution:  p.Resolution,
		WebhookID:   p.WebhookID,
		OutputDir:   outputDir,
		Filename:    filename,
	}
}
