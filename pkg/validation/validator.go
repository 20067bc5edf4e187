package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var initOnce sync.Once

// Init configures the global validator used by Gin's binding and by Validate.
// Errors report JSON tag names. It is safe to call more than once.
func Init() {
	initOnce.Do(configure)
}

func configure() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		v.RegisterAlias("pwd", "min=8")
		v.RegisterAlias("boardname", "min=1,max=255")
	}
}

// Validate runs the binding engine over a struct that did not come through a
// request, so service callers get the same rules as handlers.
func Validate(v any) error {
	if binding.Validator == nil {
		return nil
	}
	Init()
	return binding.Validator.ValidateStruct(v)
}

// ToDetails converts validation/binding errors into a map[field]message suitable for API error.details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fieldPath(fe)] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

// fieldPath drops the top-level struct name: "createBoardRequest.data.elements" -> "data.elements".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func formatFieldError(fe validator.FieldError) string {
	tag := fe.Tag()
	param := fe.Param()
	kind := fe.Kind()

	switch tag {
	case "required":
		return "is required"
	case "required_without":
		return "is required when " + param + " is not present"
	case "email":
		return "must be a valid email"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "pwd":
		return "min length 8"
	case "boardname":
		return "must be between 1 and 255 characters"
	case "min":
		switch kind {
		case reflect.String:
			return "must be at least " + param + " characters"
		case reflect.Slice, reflect.Map, reflect.Array:
			return "must contain at least " + param + " items"
		default:
			return "must be at least " + param
		}
	case "max":
		switch kind {
		case reflect.String:
			return "must be at most " + param + " characters"
		case reflect.Slice, reflect.Map, reflect.Array:
			return "must contain at most " + param + " items"
		default:
			return "must be at most " + param
		}
	case "len":
		if kind == reflect.String {
			return "must be exactly " + param + " characters"
		}
		return "must have length " + param
	default:
		if param != "" {
			return fmt.Sprintf("validation failed for '%s' with parameter '%s'", tag, param)
		}
		return fmt.Sprintf("validation failed for '%s'", tag)
	}
}
