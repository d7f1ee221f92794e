package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Fetches the watchlist view for a user against a running dashboard, signing
// a short-lived session token with SESSION_JWT_SECRET.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/watchlist <user_id> [target_gym_id]")
		fmt.Println("Example: go run ./scripts/watchlist 6f1c2d8e-user gym-42")
		os.Exit(1)
	}

	userID := os.Args[1]

	secret := os.Getenv("SESSION_JWT_SECRET")
	if secret == "" {
		fmt.Println("Error: SESSION_JWT_SECRET environment variable not set")
		os.Exit(1)
	}

	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		fmt.Printf("Error signing token: %v\n", err)
		os.Exit(1)
	}

	url := apiURL + "/watchlist/"
	fmt.Printf("Loading watchlist for %s...\n", userID)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Authorization", "Bearer "+tokenString)
	if len(os.Args) > 2 {
		req.Header.Set("X-Target-Gym-ID", os.Args[2])
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Error: HTTP %d\n", resp.StatusCode)
		fmt.Printf("Response: %s\n", string(body))
		os.Exit(1)
	}

	var view struct {
		Stage         string `json:"stage"`
		GymID         string `json:"gym_id"`
		EligibleCount int    `json:"eligible_count"`
		Members       []struct {
			MemberID       string   `json:"member_id"`
			FirstName      string   `json:"first_name"`
			LastName       string   `json:"last_name"`
			LastChurnScore *float64 `json:"last_churn_score"`
		} `json:"members"`
		EmptyMessage string `json:"empty_message"`
	}
	if err := json.Unmarshal(body, &view); err != nil {
		fmt.Printf("Response: %s\n", string(body))
		return
	}

	fmt.Printf("Gym %s (%s): %d eligible\n", view.GymID, view.Stage, view.EligibleCount)
	if view.EmptyMessage != "" {
		fmt.Println(view.EmptyMessage)
	}
	for _, m := range view.Members {
		score := "n/a"
		if m.LastChurnScore != nil {
			score = fmt.Sprintf("%.0f%%", *m.LastChurnScore)
		}
		fmt.Printf("  %-12s %-24s %s\n", m.MemberID, m.FirstName+" "+m.LastName, score)
	}
}
