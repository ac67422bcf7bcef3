// Package view derives navigation and action affordances from a session.
// The result only decides what to show; the backend authorizes every call.
package view

import (
	"github.com/spec-kit/space-booking/internal/domain"
	"github.com/spec-kit/space-booking/internal/session"
)

// Audience is who the menu was composed for.
type Audience string

const (
	AudienceAnonymous Audience = "anonymous"
	AudienceUser      Audience = "user"
	AudienceAdmin     Audience = "admin"
)

// Item is one navigation entry.
type Item struct {
	Key   string
	Label string
	Path  string
}

// Menu is the navigation and the actions enabled for one session.
type Menu struct {
	Audience Audience
	Username string
	Items    []Item

	CanReserve            bool
	CanManageSpaces       bool
	CanManageReservations bool
	CanManageUsers        bool
}

var (
	itemSpaces         = Item{Key: "spaces", Label: "Spaces", Path: "/spaces"}
	itemLogin          = Item{Key: "login", Label: "Login", Path: "/login"}
	itemRegister       = Item{Key: "register", Label: "Register", Path: "/register"}
	itemMyReservations = Item{Key: "my-reservations", Label: "My reservations", Path: "/my-reservations"}
	itemReservations   = Item{Key: "reservations", Label: "Reservations", Path: "/reservations"}
	itemUsers          = Item{Key: "users", Label: "Users", Path: "/users"}
	itemProfile        = Item{Key: "profile", Label: "Profile", Path: "/profile"}
	itemLogout         = Item{Key: "logout", Label: "Logout", Path: "/logout"}
)

// Compose builds the menu for s. It is pure: the same session always yields
// the same menu.
func Compose(s session.Session) Menu {
	if !s.LoggedIn {
		return Menu{
			Audience: AudienceAnonymous,
			Items:    []Item{itemSpaces, itemLogin, itemRegister},
		}
	}

	if isAdmin(s) {
		return Menu{
			Audience:              AudienceAdmin,
			Username:              s.Claims.Subject,
			Items:                 []Item{itemSpaces, itemReservations, itemUsers, itemProfile, itemLogout},
			CanManageSpaces:       true,
			CanManageReservations: true,
			CanManageUsers:        true,
		}
	}

	return Menu{
		Audience:   AudienceUser,
		Username:   s.Claims.Subject,
		Items:      []Item{itemSpaces, itemMyReservations, itemProfile, itemLogout},
		CanReserve: true,
	}
}

// Has reports whether the menu shows the entry with key.
func (m Menu) Has(key string) bool {
	for _, it := range m.Items {
		if it.Key == key {
			return true
		}
	}
	return false
}

func isAdmin(s session.Session) bool {
	if domain.IsAdminRole(s.Role()) {
		return true
	}
	for _, r := range s.Claims.Roles {
		if domain.IsAdminRole(r) {
			return true
		}
	}
	return false
}
