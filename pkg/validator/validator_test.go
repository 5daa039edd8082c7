package validator

import "testing"

type sampleInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestValidateStructPasses(t *testing.T) {
	input := sampleInput{Email: "trader@example.com", Password: "Str0ng!pass"}
	if err := ValidateStruct(&input); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	input := sampleInput{Email: "not-an-email", Password: "short"}
	err := ValidateStruct(&input)
	if err == nil {
		t.Fatal("expected validation failure")
	}

	failures, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(failures))
	}
	if failures[0].Field != "email" {
		t.Fatalf("expected json field name, got %s", failures[0].Field)
	}
	if failures[1].Tag != "min" || failures[1].Param != "8" {
		t.Fatalf("unexpected failure detail: %+v", failures[1])
	}
}
