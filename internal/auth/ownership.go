package auth

// Decision は所有者チェックの結果。
type Decision int

const (
	// Denied は操作が許可されないことを示す。ゼロ値は拒否。
	Denied Decision = iota
	// Authorized は操作が許可されることを示す。
	Authorized
)

// String はDecisionの文字列表現を返す。
func (d Decision) String() string {
	if d == Authorized {
		return "authorized"
	}
	return "denied"
}

// AuthorizeOwner はリソースの所有者IDと認証済みIdentityを比較する。
// 所有者が記録されていないリソース（匿名投稿）は誰であっても拒否する。
// RequireAuthの成功後、かつストアへの書き込み前に呼び出すこと。
func AuthorizeOwner(ownerID *int64, identity *Identity) Decision {
	if ownerID == nil || identity == nil {
		return Denied
	}
	if *ownerID != identity.ID {
		return Denied
	}
	return Authorized
}
