package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// healthResponse mirrors the /health endpoint payload.
type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Services  struct {
		Database struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		} `json:"database"`
	} `json:"services"`
}

func main() {
	url := "http://localhost:8080/health"
	if len(os.Args) > 1 {
		url = os.Args[1]
	}

	fmt.Printf("🔍 Probing health endpoint: %s\n", url)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Printf("❌ Error connecting to health endpoint: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("❌ Error reading response: %v\n", err)
		os.Exit(1)
	}

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("❌ Health check failed with status %d: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	var health healthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		fmt.Printf("❌ Error parsing JSON response: %v\n", err)
		os.Exit(1)
	}

	if health.Status != "ok" || health.Services.Database.Status != "ok" {
		fmt.Printf("❌ Backend unhealthy: status=%s database=%s\n", health.Status, health.Services.Database.Status)
		if health.Services.Database.Error != "" {
			fmt.Printf("   Database error: %s\n", health.Services.Database.Error)
		}
		os.Exit(1)
	}

	fmt.Printf("✅ Health check passed!\n")
	fmt.Printf("   Version: %s\n", health.Version)
	fmt.Printf("   Timestamp: %s\n", health.Timestamp)
}
