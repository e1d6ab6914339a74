package user

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	salt, err := GenerateSaltHex()
	if err != nil {
		t.Fatalf("GenerateSaltHex: %v", err)
	}
	hash, err := HashPassword("correct horse battery", salt)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if !VerifyPassword("correct horse battery", salt, hash) {
		t.Fatalf("expected password to verify")
	}
	if VerifyPassword("wrong password", salt, hash) {
		t.Fatalf("expected wrong password to fail")
	}

	salt2, _ := GenerateSaltHex()
	hash2, _ := HashPassword("correct horse battery", salt2)
	if hash == hash2 {
		t.Fatalf("expected different salts to produce different hashes")
	}
}

func TestHashPasswordEmpty(t *testing.T) {
	salt, _ := GenerateSaltHex()
	if _, err := HashPassword("", salt); err == nil {
		t.Fatalf("expected error for empty password")
	}
}

func TestRolesHelpers(t *testing.T) {
	u := User{Roles: "customer, courier"}
	roles := u.RolesSlice()
	if len(roles) != 2 || roles[0] != RoleCustomer || roles[1] != RoleCourier {
		t.Fatalf("unexpected roles: %v", roles)
	}
	if !u.HasRole(RoleCourier) || u.HasRole(RoleAdmin) {
		t.Fatalf("HasRole mismatch")
	}
	if RolesJoin([]string{" customer ", "", "admin"}) != "customer,admin" {
		t.Fatalf("RolesJoin mismatch")
	}
}
