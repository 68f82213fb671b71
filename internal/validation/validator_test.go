// Checkpoint - Appliance Backup Orchestration and Retention
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/checkpoint

package validation

import (
	"strings"
	"testing"
)

type targetForm struct {
	Name      string `validate:"required,min=1,max=128"`
	BaseURL   string `validate:"required,url"`
	Password  string `validate:"required,min=1"`
	Frequency string `validate:"required,oneof=hourly daily weekly"`
	AtTime    string `validate:"required,datetime=15:04"`
	Weekday   int    `validate:"min=0,max=6"`
}

func validForm() targetForm {
	return targetForm{
		Name:      "office pihole",
		BaseURL:   "https://pihole.lan:443",
		Password:  "s3cret",
		Frequency: "daily",
		AtTime:    "04:30",
		Weekday:   0,
	}
}

func TestGetValidatorSingleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() returned nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same instance on every call")
	}
}

func TestValidateStructAcceptsValidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*targetForm)
	}{
		{"all fields populated", func(f *targetForm) {}},
		{"hourly frequency", func(f *targetForm) { f.Frequency = "hourly" }},
		{"weekly on saturday", func(f *targetForm) { f.Frequency = "weekly"; f.Weekday = 6 }},
		{"midnight trigger", func(f *targetForm) { f.AtTime = "00:00" }},
		{"end of day trigger", func(f *targetForm) { f.AtTime = "23:59" }},
		{"http base url", func(f *targetForm) { f.BaseURL = "http://10.0.0.2" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(&form)
			if err := ValidateStruct(&form); err != nil {
				t.Errorf("ValidateStruct() = %v, want nil", err)
			}
		})
	}
}

func TestValidateStructRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*targetForm)
		wantField string
		wantTag   string
	}{
		{"missing name", func(f *targetForm) { f.Name = "" }, "Name", "required"},
		{"name too long", func(f *targetForm) { f.Name = strings.Repeat("x", 200) }, "Name", "max"},
		{"missing base url", func(f *targetForm) { f.BaseURL = "" }, "BaseURL", "required"},
		{"malformed base url", func(f *targetForm) { f.BaseURL = "not a url" }, "BaseURL", "url"},
		{"missing password", func(f *targetForm) { f.Password = "" }, "Password", "required"},
		{"unknown frequency", func(f *targetForm) { f.Frequency = "monthly" }, "Frequency", "oneof"},
		{"trigger missing minutes", func(f *targetForm) { f.AtTime = "04" }, "AtTime", "datetime"},
		{"trigger out of range", func(f *targetForm) { f.AtTime = "25:99" }, "AtTime", "datetime"},
		{"weekday too large", func(f *targetForm) { f.Weekday = 7 }, "Weekday", "max"},
		{"weekday negative", func(f *targetForm) { f.Weekday = -1 }, "Weekday", "min"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(&form)

			verr := ValidateStruct(&form)
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}

			found := false
			for _, fe := range verr.Errors() {
				if fe.Field() == tt.wantField && fe.Tag() == tt.wantTag {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected failure on field %s tag %s, got %v", tt.wantField, tt.wantTag, verr.Errors())
			}
		})
	}
}

func TestTranslatedMessages(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*targetForm)
		want   string
	}{
		{"required", func(f *targetForm) { f.Name = "" }, "Name is required"},
		{"url", func(f *targetForm) { f.BaseURL = "::::" }, "BaseURL must be a valid URL"},
		{"oneof", func(f *targetForm) { f.Frequency = "fortnightly" }, "Frequency must be one of: hourly, daily, weekly"},
		{"datetime", func(f *targetForm) { f.AtTime = "4am" }, "AtTime must be a 24-hour time in HH:MM form"},
		{"max int", func(f *targetForm) { f.Weekday = 12 }, "Weekday must be at most 6"},
		{"max string", func(f *targetForm) { f.Name = strings.Repeat("y", 129) }, "Name must be at most 128 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.mutate(&form)

			verr := ValidateStruct(&form)
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			if got := verr.Error(); !strings.Contains(got, tt.want) {
				t.Errorf("Error() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestToAPIErrorSingleFailure(t *testing.T) {
	form := validForm()
	form.Frequency = "yearly"

	verr := ValidateStruct(&form)
	if verr == nil {
		t.Fatal("ValidateStruct() = nil, want error")
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Message == "" {
		t.Error("Message is empty")
	}
	if apiErr.Details == nil {
		t.Fatal("Details is nil")
	}
	if field, _ := apiErr.Details["field"].(string); field != "Frequency" {
		t.Errorf("Details[field] = %v, want Frequency", apiErr.Details["field"])
	}
	if tag, _ := apiErr.Details["tag"].(string); tag != "oneof" {
		t.Errorf("Details[tag] = %v, want oneof", apiErr.Details["tag"])
	}
}

func TestToAPIErrorMultipleFailures(t *testing.T) {
	form := targetForm{Weekday: 9}

	verr := ValidateStruct(&form)
	if verr == nil {
		t.Fatal("ValidateStruct() = nil, want error")
	}
	if len(verr.Errors()) < 2 {
		t.Fatalf("Errors() returned %d failures, want several", len(verr.Errors()))
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Details == nil {
		t.Fatal("Details is nil")
	}
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("Details[fields] has type %T, want []map[string]interface{}", apiErr.Details["fields"])
	}
	if len(fields) != len(verr.Errors()) {
		t.Errorf("Details[fields] has %d entries, want %d", len(fields), len(verr.Errors()))
	}
	if !strings.Contains(apiErr.Message, ";") {
		t.Errorf("Message = %q, want joined failure messages", apiErr.Message)
	}
}

func TestValidateStructConcurrent(t *testing.T) {
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				form := validForm()
				if err := ValidateStruct(&form); err != nil {
					t.Errorf("ValidateStruct() = %v, want nil", err)
					return
				}
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
