package models

import "github.com/shopspring/decimal"

type Role string

const (
	RoleOwner    Role = "owner"
	RoleCustomer Role = "customer"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleOwner, RoleCustomer:
		return Role(s), true
	}
	return "", false
}

// Profile is a panel user's record. The owner's Balance accrues revenue.
type Profile struct {
	Role          Role            `json:"role"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	MemberSince   string          `json:"member_since"`
	WalletAddress string          `json:"wallet_address"`
	Balance       decimal.Decimal `json:"balance"`
}

type ProfilePatch struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

func (pp ProfilePatch) Apply(p Profile) Profile {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Email != nil {
		p.Email = *pp.Email
	}
	return p
}

type WalletSession struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address,omitempty"`
}
