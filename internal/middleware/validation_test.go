package middleware

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// checkoutShape mirrors the field rules of the public checkout payload.
type checkoutShape struct {
	Name    string `json:"name" validate:"required,min=2"`
	Phone   string `json:"phone" validate:"required,e164"`
	Address string `json:"address" validate:"required,min=10"`
}

func TestProperty_RequiredFieldValidationWorks(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("missing required fields are rejected", prop.ForAll(
		func(includeName bool, includePhone bool, includeAddress bool) bool {
			reqMap := make(map[string]interface{})

			if includeName {
				reqMap["name"] = "Asha Verma"
			}
			if includePhone {
				reqMap["phone"] = "+919812345678"
			}
			if includeAddress {
				reqMap["address"] = "14 Lake View Road, Pune"
			}

			allFieldsPresent := includeName && includePhone && includeAddress

			reqBody, _ := json.Marshal(reqMap)
			req := httptest.NewRequest("POST", "/test", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")

			var shape checkoutShape
			err := DecodeAndValidate(req, &shape)

			if allFieldsPresent {
				return err == nil
			}
			return err != nil
		},
		gen.Bool(),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_PhoneNumbersMustBeE164(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("bare digit strings without a country prefix are rejected", prop.ForAll(
		func(digits string) bool {
			reqMap := map[string]interface{}{
				"name":    "Asha Verma",
				"phone":   digits,
				"address": "14 Lake View Road, Pune",
			}

			reqBody, _ := json.Marshal(reqMap)
			req := httptest.NewRequest("POST", "/test", bytes.NewReader(reqBody))
			req.Header.Set("Content-Type", "application/json")

			var shape checkoutShape
			err := DecodeAndValidate(req, &shape)
			return err != nil
		},
		gen.RegexMatch(`0[0-9]{9}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestValidationErrorsAreFormatted(t *testing.T) {
	reqMap := map[string]interface{}{
		"name":    "Asha Verma",
		"phone":   "invalid",
		"address": "short",
	}

	reqBody, _ := json.Marshal(reqMap)
	req := httptest.NewRequest("POST", "/test", bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")

	var shape checkoutShape
	err := DecodeAndValidate(req, &shape)
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	validationErrors := FormatValidationErrors(err)
	if len(validationErrors) != 2 {
		t.Fatalf("expected 2 field errors, got %d: %v", len(validationErrors), validationErrors)
	}

	for _, ve := range validationErrors {
		if ve.Field == "" || ve.Message == "" {
			t.Fatalf("field error missing detail: %+v", ve)
		}
	}
}

func TestDecodeAndValidateRejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/test", bytes.NewReader([]byte(`{"name": `)))
	req.Header.Set("Content-Type", "application/json")

	var shape checkoutShape
	if err := DecodeAndValidate(req, &shape); err == nil {
		t.Fatal("expected decode error for malformed body")
	}
}
