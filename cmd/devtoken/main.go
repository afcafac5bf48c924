// Command devtoken prints a signed access token for local testing.  The
// server does not issue tokens itself; an upstream identity service does.
package main

import (
    "flag"
    "fmt"
    "log"
    "os"
    "strings"
    "time"

    "github.com/joho/godotenv"

    "github.com/iliyamo/seat-inventory/internal/utils"
)

func main() {
    _ = godotenv.Load()

    user := flag.Uint64("user", 1, "user id written to the sub claim")
    role := flag.String("role", "CUSTOMER", "CUSTOMER, ORGANIZER or ADMIN")
    ttl := flag.Duration("ttl", time.Hour, "token lifetime")
    secret := flag.String("secret", os.Getenv("JWT_SECRET"), "HMAC secret (defaults to $JWT_SECRET)")
    flag.Parse()

    if *secret == "" {
        log.Fatal("missing secret: set JWT_SECRET or pass -secret")
    }
    switch r := strings.ToUpper(*role); r {
    case "CUSTOMER", "ORGANIZER", "ADMIN":
        *role = r
    default:
        log.Fatalf("unknown role %q", *role)
    }

    tok, err := utils.NewAccessToken(*secret, *user, *role, *ttl)
    if err != nil {
        log.Fatal(err)
    }
    fmt.Println(tok.Token)
    fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}
