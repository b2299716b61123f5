package portal

import (
	"crypto/hmac"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/tech-arch1tect/gymportal/services/cipher"
)

const sessionPurpose = "member-portal-session"

var (
	errSessionMalformed = errors.New("session token is malformed")
	errSessionExpired   = errors.New("session token has expired")
)

type MemberSession struct {
	MemberID uuid.UUID `json:"memberId"`
	GymID    uuid.UUID `json:"gymId"`
}

type sessionPayload struct {
	MemberID  string `json:"memberId"`
	GymID     string `json:"gymId"`
	ExpiresAt int64  `json:"expiresAt"`
	MAC       string `json:"mac"`
}

type sessionCodec struct {
	cipher *cipher.Cipher
}

func (c sessionCodec) sign(p sessionPayload) string {
	tag := c.cipher.Sign(sessionPurpose, p.MemberID, p.GymID, strconv.FormatInt(p.ExpiresAt, 10))
	return hex.EncodeToString(tag)
}

func (c sessionCodec) issue(sess MemberSession, expiresAt time.Time) (string, error) {
	p := sessionPayload{
		MemberID:  sess.MemberID.String(),
		GymID:     sess.GymID.String(),
		ExpiresAt: expiresAt.UnixMilli(),
	}
	p.MAC = c.sign(p)

	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return c.cipher.Encrypt(string(raw))
}

// verify returns errSessionMalformed for anything that fails to decrypt,
// parse or authenticate, and errSessionExpired once expiresAt has passed.
func (c sessionCodec) verify(token string, now time.Time) (MemberSession, error) {
	plain, err := c.cipher.Decrypt(token)
	if err != nil {
		return MemberSession{}, errSessionMalformed
	}

	var p sessionPayload
	if err := json.Unmarshal([]byte(plain), &p); err != nil {
		return MemberSession{}, errSessionMalformed
	}

	// encoding/json matches keys case-insensitively, so only the exact bytes
	// issue would produce are accepted.
	canonical, err := json.Marshal(p)
	if err != nil || string(canonical) != plain {
		return MemberSession{}, errSessionMalformed
	}

	if !hmac.Equal([]byte(p.MAC), []byte(c.sign(p))) {
		return MemberSession{}, errSessionMalformed
	}

	memberID, err := uuid.Parse(p.MemberID)
	if err != nil {
		return MemberSession{}, errSessionMalformed
	}
	gymID, err := uuid.Parse(p.GymID)
	if err != nil {
		return MemberSession{}, errSessionMalformed
	}

	if now.UnixMilli() >= p.ExpiresAt {
		return MemberSession{}, errSessionExpired
	}

	return MemberSession{MemberID: memberID, GymID: gymID}, nil
}
