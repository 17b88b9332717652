package enums

import "testing"

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("Picked")
	if err != nil || status != OrderStatusPicked {
		t.Fatalf("expected Picked, got %q err=%v", status, err)
	}
	if _, err := ParseOrderStatus("picked"); err == nil {
		t.Fatalf("status parsing is case sensitive")
	}
}

func TestUserRoleValidity(t *testing.T) {
	if !UserRoleAdmin.IsValid() || !UserRoleCustomer.IsValid() {
		t.Fatalf("known roles should be valid")
	}
	if UserRole("owner").IsValid() {
		t.Fatalf("unknown role should be invalid")
	}
}

func TestParseProductCategory(t *testing.T) {
	if _, err := ParseProductCategory("Herbal"); err == nil {
		t.Fatalf("expected error for unknown category")
	}
	if c, err := ParseProductCategory("Coffee"); err != nil || c != ProductCategoryCoffee {
		t.Fatalf("expected Coffee, got %q err=%v", c, err)
	}
}
