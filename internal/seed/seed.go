// Package seed loads a YAML fixture describing users, their home trees and
// guest-access grants, and writes it into the store. Used by the `seed`
// subcommand to bootstrap development and demo environments.
package seed

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/go-homelink/homelink/internal/models"
	"github.com/go-homelink/homelink/internal/store"
)

// Fixture is the root of a seed file.
type Fixture struct {
	Users []User `yaml:"users"`
}

// User describes one account to create. UID is optional; a random one is
// generated when absent. Password is hashed with bcrypt before storage and
// only matters under AUTH_MODE=local.
type User struct {
	UID         string           `yaml:"uid"`
	Email       string           `yaml:"email"`
	Password    string           `yaml:"password"`
	Homes       map[string]Home  `yaml:"homes"`
	GuestAccess map[string]Grant `yaml:"guest_access"`
}

type Home struct {
	Rooms map[string]Room `yaml:"rooms"`
}

type Room struct {
	Products map[string]Product `yaml:"products"`
}

type Product struct {
	Devices map[string]Device `yaml:"devices"`
}

type Device struct {
	Name string `yaml:"name"`
}

type Grant struct {
	OwnerID string `yaml:"owner_id"`
}

// Load reads and parses a fixture file.
func Load(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}

	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if len(f.Users) == 0 {
		return nil, fmt.Errorf("fixture contains no users")
	}
	return &f, nil
}

// Apply writes every fixture user into the store.
func (f *Fixture) Apply(ctx context.Context, s store.Store) error {
	for _, u := range f.Users {
		uid := u.UID
		if uid == "" {
			uid = uuid.New().String()
		}

		rec := &models.UserRecord{
			Email: u.Email,
			Homes: models.HomeSet{
				Homes:  make(map[string]models.Home, len(u.Homes)),
				Grants: make(map[string]models.GuestGrant, len(u.GuestAccess)),
			},
		}

		if u.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("failed to hash password for %s: %w", u.Email, err)
			}
			rec.PasswordHash = string(hash)
		}

		for homeID, home := range u.Homes {
			rec.Homes.Homes[homeID] = convertHome(home)
		}
		for guestHomeID, grant := range u.GuestAccess {
			rec.Homes.Grants[guestHomeID] = models.GuestGrant{OwnerID: grant.OwnerID}
		}

		if err := s.PutUserRecord(ctx, uid, rec); err != nil {
			return fmt.Errorf("failed to store user %s: %w", uid, err)
		}
		log.Printf("Seeded user %s (%s): %d homes, %d guest grants",
			uid, u.Email, len(u.Homes), len(u.GuestAccess))
	}
	return nil
}

func convertHome(h Home) models.Home {
	out := models.Home{Rooms: make(map[string]models.Room, len(h.Rooms))}
	for roomID, room := range h.Rooms {
		r := models.Room{Products: make(map[string]models.Product, len(room.Products))}
		for productID, product := range room.Products {
			p := models.Product{Devices: make(map[string]models.Device, len(product.Devices))}
			for deviceKey, device := range product.Devices {
				p.Devices[deviceKey] = models.Device{Name: device.Name}
			}
			r.Products[productID] = p
		}
		out.Rooms[roomID] = r
	}
	return out
}
