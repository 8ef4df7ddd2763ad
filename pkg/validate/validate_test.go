package validate_test

import (
	"testing"

	"github.com/naturelovers/storefront/pkg/validate"
)

type registerInput struct {
	Name     string  `json:"name"     validate:"required,max=50"`
	Email    string  `json:"email"    validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Phone    string  `json:"phone"    validate:"required,phone"`
	Type     string  `json:"type"     validate:"required,in=plant,service"`
	Site     string  `json:"site"     validate:"nullable,url"`
	Qty      int     `json:"quantity" validate:"nullable,gte=1"`
	Score    float64 `json:"score"    validate:"nullable,between=0,100"`
}

func valid() registerInput {
	return registerInput{
		Name:     "asha",
		Email:    "asha@example.com",
		Password: "secret",
		Phone:    "9876543210",
		Type:     "plant",
	}
}

func TestValidInput(t *testing.T) {
	if errs := validate.Struct(valid()); validate.HasErrors(errs) {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(registerInput{})
	for _, f := range []string{"name", "email", "password", "phone", "type"} {
		if _, ok := errs[f]; !ok {
			t.Errorf("expected error for %s", f)
		}
	}
	if _, ok := errs["site"]; ok {
		t.Error("nullable site should not be reported")
	}
}

func TestEmailRule(t *testing.T) {
	for _, bad := range []string{"plainaddress", "a@b", "a b@c.d"} {
		in := valid()
		in.Email = bad
		if _, ok := validate.Struct(in)["email"]; !ok {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
	if !validate.Email("x@y.in") {
		t.Error("expected x@y.in to be accepted")
	}
}

func TestPhoneRule(t *testing.T) {
	in := valid()
	in.Phone = "12345"
	if _, ok := validate.Struct(in)["phone"]; !ok {
		t.Error("expected short phone to be rejected")
	}
	in.Phone = "12345678ab"
	if _, ok := validate.Struct(in)["phone"]; !ok {
		t.Error("expected non-digit phone to be rejected")
	}
}

func TestInRule(t *testing.T) {
	in := valid()
	in.Type = "tool"
	if errs := validate.Struct(in); errs["type"] != "The selected type is invalid." {
		t.Errorf("unexpected errors: %v", errs)
	}
	in.Type = "service"
	if errs := validate.Struct(in); validate.HasErrors(errs) {
		t.Errorf("service should be accepted: %v", errs)
	}
}

func TestNumericBounds(t *testing.T) {
	in := valid()
	in.Qty = -2
	in.Score = 101
	errs := validate.Struct(in)
	if _, ok := errs["quantity"]; !ok {
		t.Error("expected quantity error")
	}
	if _, ok := errs["score"]; !ok {
		t.Error("expected score error")
	}
}

func TestMinLength(t *testing.T) {
	in := valid()
	in.Password = "12345"
	if _, ok := validate.Struct(in)["password"]; !ok {
		t.Error("expected password error")
	}
}

func TestObjectIDAndDate(t *testing.T) {
	if !validate.ObjectID("65f0c0ffee0000000000abcd") {
		t.Error("expected valid object id")
	}
	if validate.ObjectID("not-an-id") {
		t.Error("expected invalid object id")
	}
	if _, err := validate.ParseDate("2024-05-01"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := validate.ParseDate("tomorrow"); err == nil {
		t.Error("expected parse error")
	}
}

type lineInput struct {
	ItemID   string  `json:"itemId"   validate:"required"                  message:"*=Missing required fields"`
	Type     string  `json:"type"     validate:"required,in=plant,service" message:"required=Missing required fields|in=Type must be plant or service"`
	Price    price   `json:"price"    validate:"required,valid"            message:"required=Missing required fields|valid=Price must be a non-negative number"`
	Quantity *int    `json:"quantity" validate:"gte=1"`
	Nick     *string `json:"nick"     validate:"filled"`
}

type price struct {
	set    bool
	amount float64
}

func (p price) IsZero() bool { return !p.set }
func (p price) Valid() bool  { return p.amount >= 0 }

func TestCheckReportsRequiredFirst(t *testing.T) {
	in := lineInput{Type: "tool", Price: price{set: true, amount: -1}}
	if msg := validate.Check(in); msg != "Missing required fields" {
		t.Errorf("expected the required message, got %q", msg)
	}

	in.ItemID = "5"
	if msg := validate.Check(&in); msg != "Type must be plant or service" {
		t.Errorf("expected the type message, got %q", msg)
	}

	in.Type = "plant"
	if msg := validate.Check(&in); msg != "Price must be a non-negative number" {
		t.Errorf("expected the price message, got %q", msg)
	}

	in.Price.amount = 0
	if msg := validate.Check(&in); msg != "" {
		t.Errorf("expected no failure, got %q", msg)
	}
}

func TestZeroValueTypesAreRequired(t *testing.T) {
	in := lineInput{ItemID: "5", Type: "plant"}
	if errs := validate.Struct(in); errs["price"] != "Missing required fields" {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestPointerFieldsAreOptional(t *testing.T) {
	in := lineInput{ItemID: "5", Type: "plant", Price: price{set: true}}
	if msg := validate.Check(in); msg != "" {
		t.Errorf("absent pointers should pass, got %q", msg)
	}

	zero, blank := 0, "  "
	in.Quantity = &zero
	if errs := validate.Struct(in); errs["quantity"] != "The quantity must be greater than or equal to 1." {
		t.Errorf("unexpected errors: %v", errs)
	}

	one := 1
	in.Quantity, in.Nick = &one, &blank
	if errs := validate.Struct(in); errs["nick"] != "The nick field must have a value." {
		t.Errorf("unexpected errors: %v", errs)
	}
}
