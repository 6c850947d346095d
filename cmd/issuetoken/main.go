// Command issuetoken prints a signed access token for local testing and
// operator scripts.  Production tokens come from the identity service;
// both sign with JWT_SECRET.
//
//	issuetoken -user 7 -role CUSTOMER
package main

import (
    "flag"
    "fmt"
    "os"

    "github.com/joho/godotenv"

    "github.com/iliyamo/flight-seat-reservation/internal/config"
    "github.com/iliyamo/flight-seat-reservation/internal/middleware"
    "github.com/iliyamo/flight-seat-reservation/internal/utils"
)

func main() {
    _ = godotenv.Load()

    userID := flag.Uint64("user", 0, "user id placed in the sub claim")
    role := flag.String("role", middleware.RoleCustomer, "CUSTOMER or ADMIN")
    ttl := flag.Int("ttl", 0, "lifetime in minutes (default ACCESS_TOKEN_TTL_MIN or 15)")
    flag.Parse()

    secret := os.Getenv("JWT_SECRET")
    if secret == "" || *userID == 0 {
        fmt.Fprintln(os.Stderr, "JWT_SECRET must be set and -user must be positive")
        os.Exit(2)
    }
    if *role != middleware.RoleCustomer && *role != middleware.RoleAdmin {
        fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
        os.Exit(2)
    }
    if *ttl <= 0 {
        *ttl = config.AccessTokenTTL()
    }

    tok, err := utils.NewAccessToken(secret, *userID, *role, *ttl)
    if err != nil {
        fmt.Fprintln(os.Stderr, err)
        os.Exit(1)
    }
    fmt.Println(tok.Token)
}

