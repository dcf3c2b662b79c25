// Seeds an org's knowledge base and FAQ list through the admin API.
//
// Usage: go run scripts/seed-knowledge.go <knowledge-file.json>
// Requires ADMIN_JWT in the environment; API_URL defaults to localhost.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type KnowledgeFile struct {
	OrgID     string     `json:"org_id"`
	OrgName   string     `json:"org_name"`
	Documents []Document `json:"documents"`
	FAQs      []FAQ      `json:"faqs"`
}

type Document struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run scripts/seed-knowledge.go <knowledge-file.json>")
		os.Exit(1)
	}

	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
	adminJWT := strings.TrimSpace(os.Getenv("ADMIN_JWT"))
	if adminJWT == "" {
		fmt.Println("❌ ADMIN_JWT is required")
		os.Exit(1)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Printf("❌ Error reading file: %v\n", err)
		os.Exit(1)
	}

	var kf KnowledgeFile
	if err := json.Unmarshal(data, &kf); err != nil {
		fmt.Printf("❌ Error parsing JSON: %v\n", err)
		os.Exit(1)
	}
	if kf.OrgID == "" {
		fmt.Println("❌ org_id is required in the knowledge file")
		os.Exit(1)
	}

	fmt.Printf("🌱 Seeding Knowledge Base\n")
	fmt.Printf("============================\n")
	fmt.Printf("API URL: %s\n", apiURL)
	fmt.Printf("Org: %s (%s)\n", kf.OrgName, kf.OrgID)
	fmt.Printf("Documents: %d, FAQs: %d\n\n", len(kf.Documents), len(kf.FAQs))

	// Documents upload as "Title\n\nContent" snippets.
	docs := make([]string, len(kf.Documents))
	for i, doc := range kf.Documents {
		docs[i] = fmt.Sprintf("%s\n\n%s", doc.Title, doc.Content)
	}

	ctx := context.Background()
	client := &http.Client{Timeout: 30 * time.Second}

	put := func(path string, payload any) {
		body, err := json.Marshal(payload)
		if err != nil {
			fmt.Printf("   ❌ Error marshaling request: %v\n", err)
			return
		}
		url := fmt.Sprintf("%s/admin/orgs/%s%s", apiURL, kf.OrgID, path)
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
		if err != nil {
			fmt.Printf("   ❌ Error creating request: %v\n", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+adminJWT)

		resp, err := client.Do(req)
		if err != nil {
			fmt.Printf("   ❌ Error sending request: %v\n", err)
			return
		}
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			fmt.Printf("   ✅ PUT %s ok\n", path)
		} else {
			fmt.Printf("   ❌ PUT %s failed (status %d): %s\n", path, resp.StatusCode, string(respBody))
		}
	}

	if len(docs) > 0 {
		fmt.Printf("📦 Uploading %d documents...\n", len(docs))
		put("/knowledge", map[string]any{"documents": docs})
	}
	if len(kf.FAQs) > 0 {
		fmt.Printf("📦 Uploading %d FAQs...\n", len(kf.FAQs))
		put("/faqs", map[string]any{"faqs": kf.FAQs})
	}

	fmt.Println("\nDone. Cached responses were purged server-side.")
}
