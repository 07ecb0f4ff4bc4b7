package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"article-rag-be/internal/config"
	"article-rag-be/pkg/loader"

	"github.com/fatih/color"
	"github.com/golang-jwt/jwt/v5"
)

func main() {
	cfg := config.Load()

	file := flag.String("file", cfg.App.SeedFile, "JSON file with the articles to ingest")
	baseURL := flag.String("url", "http://localhost:"+cfg.App.Port+"/api", "API base URL")
	async := flag.Bool("async", false, "Queue the batch instead of waiting for ingest")
	flag.Parse()

	color.Cyan("Seeding articles from %s", *file)

	articles, err := loader.LoadFile(*file)
	if err != nil {
		color.Red("Failed to load articles: %v", err)
		os.Exit(1)
	}
	color.Yellow("Loaded %d articles", len(articles))

	path := "/article/v1/ingest"
	if *async {
		path += "/async"
	}

	token := ""
	if cfg.App.IngestJwtSecret != "" {
		token, err = signToken(cfg.App.IngestJwtSecret)
		if err != nil {
			color.Red("Failed to sign token: %v", err)
			os.Exit(1)
		}
	}

	status, body, err := post(*baseURL+path, token, articles)
	if err != nil {
		color.Red("Request failed: %v", err)
		os.Exit(1)
	}

	if status >= 300 {
		color.Red("Status: %d", status)
		fmt.Println(string(body))
		os.Exit(1)
	}

	color.Green("Status: %d", status)
	fmt.Println(string(body))
}

func signToken(secret string) (string, error) {
	claims := jwt.MapClaims{
		"sub": "seed-cli",
		"exp": time.Now().Add(5 * time.Minute).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func post(url, token string, body interface{}) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	// Ingest embeds every article before answering.
	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp.StatusCode, respBody, err
}
