package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

type credentials struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	DNI       string `json:"dni,omitempty"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginResponse struct {
	Data struct {
		AccessToken string `json:"access_token"`
	} `json:"data"`
}

// Seeds a running instance: registers a staff account (tolerating an
// existing one), logs in, and uploads a roster file for the given grade.
func main() {
	var (
		base     string
		email    string
		password string
		grade    string
		roster   string
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL")
	flag.StringVar(&email, "email", "seed@example.com", "Staff email")
	flag.StringVar(&password, "password", "seedpassword", "Staff password")
	flag.StringVar(&grade, "grade", "1ro", "Default grade for roster rows")
	flag.StringVar(&roster, "roster", filepath.Join("scripts", "seed", "roster.csv"), "Path to roster CSV")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	client := &http.Client{Timeout: timeout}

	register(client, base, credentials{
		FirstName: "Seed", LastName: "Account", DNI: "00000001",
		Email: email, Password: password,
	})

	token, err := login(client, base, credentials{Email: email, Password: password})
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}

	added, errs, err := uploadRoster(client, base, token, roster, grade)
	if err != nil {
		log.Fatalf("roster upload failed: %v", err)
	}
	fmt.Printf("imported %d students (%d row errors)\n", added, errs)
}

func register(client *http.Client, base string, creds credentials) {
	payload, _ := json.Marshal(creds)
	resp, err := client.Post(base+"/auth/register", "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("register failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
		body, _ := io.ReadAll(resp.Body)
		log.Fatalf("register returned %d: %s", resp.StatusCode, body)
	}
}

func login(client *http.Client, base string, creds credentials) (string, error) {
	payload, _ := json.Marshal(creds)
	resp, err := client.Post(base+"/auth/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("login returned %d: %s", resp.StatusCode, body)
	}

	var parsed loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	return parsed.Data.AccessToken, nil
}

func uploadRoster(client *http.Client, base, token, roster, grade string) (int, int, error) {
	file, err := os.Open(roster)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(roster))
	if err != nil {
		return 0, 0, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return 0, 0, err
	}
	if err := writer.WriteField("grade", grade); err != nil {
		return 0, 0, err
	}
	if err := writer.Close(); err != nil {
		return 0, 0, err
	}

	req, err := http.NewRequest(http.MethodPost, base+"/students/import", body)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return 0, 0, fmt.Errorf("import returned %d: %s", resp.StatusCode, raw)
	}

	var parsed struct {
		Data struct {
			Added  int      `json:"added"`
			Errors []string `json:"errors"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, 0, err
	}
	return parsed.Data.Added, len(parsed.Data.Errors), nil
}
