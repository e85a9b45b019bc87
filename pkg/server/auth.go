package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crystal-mush/gomoo/pkg/moodb"
)

// ErrBadCredentials covers both unknown players and wrong passwords so
// the API cannot be used to probe for player names.
var ErrBadCredentials = errors.New("invalid credentials")

// Claims are the JWT claims for a web-authenticated player. The wizard
// bit is a hint for clients; the server re-checks the database on every
// privileged request.
type Claims struct {
	PlayerRef  moodb.ObjID `json:"player_ref"`
	PlayerName string      `json:"player_name"`
	Wizard     bool        `json:"wizard"`
	jwt.RegisteredClaims
}

// AuthService issues and validates HS256 tokens bound to player identity.
type AuthService struct {
	game   *Game
	jwtKey []byte
	expiry time.Duration
}

// NewAuthService creates an auth service. An empty jwtSecret gets a
// random key, which invalidates outstanding tokens across restarts.
func NewAuthService(game *Game, jwtSecret string, expirySeconds int) *AuthService {
	key := []byte(jwtSecret)
	if len(key) == 0 {
		key = make([]byte, 32)
		rand.Read(key)
	}
	expiry := 24 * time.Hour
	if expirySeconds > 0 {
		expiry = time.Duration(expirySeconds) * time.Second
	}
	return &AuthService{game: game, jwtKey: key, expiry: expiry}
}

// Login checks credentials against the player database and returns a
// signed token.
func (a *AuthService) Login(name, password string) (string, error) {
	player := a.game.DB.FindPlayer(name)
	if player == moodb.Nothing || !CheckPassword(a.game.DB, player, password) {
		return "", ErrBadCredentials
	}
	obj := a.game.DB.Objects[player]
	return a.sign(Claims{
		PlayerRef:  player,
		PlayerName: obj.Name,
		Wizard:     obj.HasFlag(moodb.FlagWizard),
	})
}

func (a *AuthService) sign(claims Claims) (string, error) {
	now := time.Now()
	claims.Subject = claims.PlayerRef.String()
	claims.Issuer = "gomoo"
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.expiry))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtKey)
}

// ValidateToken parses and verifies a token string.
func (a *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims,
		func(t *jwt.Token) (any, error) { return a.jwtKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return &claims, nil
}

// RefreshToken re-issues a valid token with a fresh expiry.
func (a *AuthService) RefreshToken(tokenStr string) (string, error) {
	claims, err := a.ValidateToken(tokenStr)
	if err != nil {
		return "", err
	}
	return a.sign(*claims)
}

// GenerateJWTSecret produces a random hex secret for the jwt_secret
// config key.
func GenerateJWTSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}
