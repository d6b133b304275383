package utils

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// APIKeyPrefix starts every merchant API key: dpk_<prefix>_<secret>.
const APIKeyPrefix = "dpk"

var ErrMalformedAPIKey = errors.New("malformed api key")

func GenerateSecureCode() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func MustGenerateSecureCode() string {
	code, err := GenerateSecureCode()
	if err != nil {
		panic("failed to generate secure code: " + err.Error())
	}
	return code
}

// GeneratedAPIKey is returned once at creation; only Hash is stored.
type GeneratedAPIKey struct {
	Key    string
	Prefix string
	Hash   string
}

func GenerateAPIKey() (*GeneratedAPIKey, error) {
	prefix, err := GenerateUniqueID(6)
	if err != nil {
		return nil, err
	}

	secret, err := GenerateSecureCode()
	if err != nil {
		return nil, err
	}
	// the secret must not contain the separator
	secret = strings.ReplaceAll(secret, "_", "-")

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return &GeneratedAPIKey{
		Key:    APIKeyPrefix + "_" + prefix + "_" + secret,
		Prefix: prefix,
		Hash:   string(hash),
	}, nil
}

// ParseAPIKey splits dpk_<prefix>_<secret>.
func ParseAPIKey(key string) (prefix, secret string, err error) {
	parts := strings.SplitN(key, "_", 3)
	if len(parts) != 3 || parts[0] != APIKeyPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", ErrMalformedAPIKey
	}
	return parts[1], parts[2], nil
}

func CompareAPISecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// GenerateWebhookSecret returns a whsec_ prefixed signing secret.
func GenerateWebhookSecret() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "whsec_" + hex.EncodeToString(b), nil
}
