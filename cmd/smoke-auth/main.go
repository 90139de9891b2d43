// Command smoke-auth drives the full token lifecycle against a running
// collabhub-api instance: register, login, an authenticated call, refresh
// rotation with reuse detection, and logout with access revocation.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"
)

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func main() {
	base := os.Getenv("COLLABHUB_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	client := &http.Client{Timeout: 5 * time.Second}

	username := fmt.Sprintf("smoke-%d", rand.Int())
	password := "smoke-test-password"

	status, _ := call(client, http.MethodPost, base+"/v1/auth/register", map[string]any{
		"email":    username + "@example.com",
		"username": username,
		"password": password,
	}, "")
	if status != http.StatusCreated {
		log.Fatalf("register: status %d", status)
	}

	status, body := call(client, http.MethodPost, base+"/v1/auth/login", map[string]any{
		"username": username,
		"password": password,
	}, "")
	if status != http.StatusOK {
		log.Fatalf("login: status %d", status)
	}
	var pair tokenPair
	if err := json.Unmarshal(body, &pair); err != nil {
		log.Fatalf("login: decode pair: %v", err)
	}

	if status, _ = call(client, http.MethodGet, base+"/v1/projects", nil, pair.AccessToken); status != http.StatusOK {
		log.Fatalf("authenticated listing: status %d", status)
	}

	status, body = call(client, http.MethodPost, base+"/v1/auth/refresh", map[string]any{
		"refresh_token": pair.RefreshToken,
	}, "")
	if status != http.StatusOK {
		log.Fatalf("refresh: status %d", status)
	}
	var rotated tokenPair
	if err := json.Unmarshal(body, &rotated); err != nil {
		log.Fatalf("refresh: decode pair: %v", err)
	}

	// The consumed refresh token must be rejected.
	if status, _ = call(client, http.MethodPost, base+"/v1/auth/refresh", map[string]any{
		"refresh_token": pair.RefreshToken,
	}, ""); status != http.StatusUnauthorized {
		log.Fatalf("refresh reuse: expected 401, got %d", status)
	}

	if status, _ = call(client, http.MethodPost, base+"/v1/auth/logout", map[string]any{
		"refresh_token": rotated.RefreshToken,
	}, rotated.AccessToken); status != http.StatusNoContent {
		log.Fatalf("logout: status %d", status)
	}

	// The blacklisted access token must be rejected.
	if status, _ = call(client, http.MethodGet, base+"/v1/projects", nil, rotated.AccessToken); status != http.StatusUnauthorized {
		log.Fatalf("blacklisted access: expected 401, got %d", status)
	}

	fmt.Printf("✅ auth smoke test passed: user=%s\n", username)
}

func call(client *http.Client, method, url string, body any, bearer string) (int, []byte) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			log.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp.StatusCode, buf.Bytes()
}
