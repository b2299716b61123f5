package portal

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Gym struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primaryKey" json:"id"`
	Slug      string    `gorm:"uniqueIndex;size:128;not null" json:"slug"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	LogoURL   *string   `gorm:"size:1024" json:"logo_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Gym) TableName() string {
	return "gyms"
}

func (g *Gym) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// Member holds only the columns the portal reads and writes. PortalPIN is the
// encrypted envelope of the current PIN and stays nil until the first request.
type Member struct {
	ID            uuid.UUID  `gorm:"type:varchar(36);primaryKey" json:"id"`
	GymID         uuid.UUID  `gorm:"type:varchar(36);not null;uniqueIndex:idx_members_gym_email" json:"gym_id"`
	Email         string     `gorm:"size:255;not null;uniqueIndex:idx_members_gym_email" json:"email"`
	FullName      string     `gorm:"size:255;not null" json:"full_name"`
	PortalPIN     *string    `gorm:"size:255" json:"-"`
	PINCreatedAt  *time.Time `json:"pin_created_at"`
	LastPINSentAt *time.Time `gorm:"index" json:"last_pin_sent_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Member) TableName() string {
	return "members"
}

func (m *Member) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.Email = NormalizeEmail(m.Email)
	return nil
}

func (m *Member) HasPIN() bool {
	return m.PortalPIN != nil
}

// Models lists the tables this package needs migrated.
func Models() []any {
	return []any{&Gym{}, &Member{}}
}
