package auth

import "testing"

func int64Ptr(v int64) *int64 { return &v }

func TestAuthorizeOwner(t *testing.T) {
	tests := []struct {
		name     string
		ownerID  *int64
		identity *Identity
		want     Decision
	}{
		{name: "owner matches", ownerID: int64Ptr(7), identity: &Identity{ID: 7}, want: Authorized},
		{name: "different user", ownerID: int64Ptr(7), identity: &Identity{ID: 8}, want: Denied},
		{name: "anonymous resource", ownerID: nil, identity: &Identity{ID: 7}, want: Denied},
		{name: "anonymous resource zero id", ownerID: nil, identity: &Identity{ID: 0}, want: Denied},
		{name: "no identity", ownerID: int64Ptr(7), identity: nil, want: Denied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AuthorizeOwner(tt.ownerID, tt.identity); got != tt.want {
				t.Errorf("AuthorizeOwner() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecision_String(t *testing.T) {
	if got := Authorized.String(); got != "authorized" {
		t.Errorf("Authorized.String() = %q, want %q", got, "authorized")
	}
	if got := Denied.String(); got != "denied" {
		t.Errorf("Denied.String() = %q, want %q", got, "denied")
	}
	var zero Decision
	if zero != Denied {
		t.Error("zero value Decision should be Denied")
	}
}
