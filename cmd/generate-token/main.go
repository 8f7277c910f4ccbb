// Command generate-token issues a session JWT for local testing.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func main() {
	secret := flag.String("secret", "", "JWT secret (matches auth.jwt_secret in config)")
	userID := flag.String("user", "", "user id to embed (default: random UUID)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "usage: generate-token -secret <jwt secret> [-user <uuid>] [-ttl <duration>]")
		os.Exit(1)
	}
	if *userID == "" {
		*userID = uuid.NewString()
	}

	now := time.Now()
	claims := struct {
		UserID string `json:"user_id"`
		jwt.RegisteredClaims
	}{
		UserID: *userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
			Subject:   *userID,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(*secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Printf("\nUser ID: %s\nExpires: %s\n", *userID, now.Add(*ttl).Format(time.RFC3339))
}
