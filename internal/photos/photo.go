package photos

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

//go:generate mockgen -source=$GOFILE -destination=storage_mocks_test.go -package=photos_test

// Slots is the number of progress photo slots every user has.
const Slots = 3

var (
	ErrInvalidSlot   = errors.New("invalid photo slot")
	ErrInvalidName   = errors.New("invalid photo name")
	ErrPhotoNotFound = errors.New("photo not found")
)

// Photo is one slot of the user's progress photos. An empty slot has no Name.
type Photo struct {
	Slot int    `json:"slot"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	// Data is the base64 image, only filled for photos without a URL
	Data string `json:"data,omitempty"`
}

type Upload struct {
	Slot        int
	Name        string
	ContentType string
	Data        []byte
}

type Storage interface {
	List(ctx context.Context, userID string) ([]Photo, error)
	Init(ctx context.Context, userID string) error
	Upload(ctx context.Context, userID string, upload Upload) error
	Delete(ctx context.Context, userID, name string) error
}

func ValidSlot(slot int) bool {
	return slot >= 1 && slot <= Slots
}

func ValidName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// fillSlots returns exactly Slots photos, ordered by slot, keeping the first photo found per slot.
func fillSlots(found []Photo) []Photo {
	slots := make([]Photo, Slots)
	for i := range slots {
		slots[i] = Photo{Slot: i + 1}
	}
	for _, p := range found {
		if !ValidSlot(p.Slot) || slots[p.Slot-1].Name != "" {
			continue
		}
		slots[p.Slot-1] = p
	}
	return slots
}

func slotFolder(slot int) string {
	return fmt.Sprintf("slot-%d", slot)
}
