// Command token mints a bearer token for the write routes, signed with the
// JWT_SECRET of the current environment.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/noah-isme/sma-course-roster/internal/middleware"
	"github.com/noah-isme/sma-course-roster/internal/models"
	"github.com/noah-isme/sma-course-roster/pkg/config"
)

func main() {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	flag.StringVar(&userID, "user", "operator", "Subject of the token")
	flag.StringVar(&role, "role", string(models.RoleAdmin), "Role claim (ADMIN or STAFF)")
	flag.DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	r := models.UserRole(strings.ToUpper(role))
	if r != models.RoleAdmin && r != models.RoleStaff {
		log.Fatalf("unknown role %q", role)
	}
	if ttl <= 0 {
		log.Fatal("ttl must be positive")
	}

	token, err := middleware.IssueToken([]byte(cfg.JWT.Secret), userID, r, ttl)
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	fmt.Println(token)
}
