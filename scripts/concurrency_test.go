//go:build ignore
// +build ignore

// Package main is a manual stress test for loan admission against a running server.
//
// Usage:
//
//	go run ./scripts/concurrency_test.go <book_id> <reader1_id> [reader2_id ...]
//
// Or with environment variables:
//
//	BOOK_ID=<uuid>  READER_IDS=<uuid1>,<uuid2>,...  go run ./scripts/concurrency_test.go
//
// It fires one POST /loans per reader at the same book at the same instant and
// then checks that the number of accepted loans never exceeds the copies that
// were available, and that the book's counter did not go negative.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const defaultServerAddr = "http://localhost:8080"

type loanResult struct {
	ReaderID   string
	StatusCode int
	Body       string
	Err        error
}

type bookState struct {
	Title         string `json:"title"`
	TotalQuantity int    `json:"total_quantity"`
	Available     int    `json:"available"`
}

func main() {
	serverAddr := os.Getenv("SERVER_URL")
	if serverAddr == "" {
		serverAddr = defaultServerAddr
	}

	bookID := os.Getenv("BOOK_ID")
	var readerIDs []string
	if v := os.Getenv("READER_IDS"); v != "" {
		readerIDs = strings.Split(v, ",")
	}
	args := os.Args[1:]
	if len(args) >= 1 {
		bookID = args[0]
	}
	if len(args) >= 2 {
		readerIDs = args[1:]
	}
	if bookID == "" || len(readerIDs) == 0 {
		log.Fatal("Usage: BOOK_ID=<uuid> READER_IDS=<r1,r2,...> go run ./scripts/concurrency_test.go\n" +
			"  or: go run ./scripts/concurrency_test.go <book_id> <reader1_id> [reader2_id ...]")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	before, err := fetchBook(client, serverAddr, bookID)
	if err != nil {
		log.Fatalf("fetch book: %v", err)
	}

	fmt.Printf("=== Loan Admission Stress Test ===\n")
	fmt.Printf("Server    : %s\n", serverAddr)
	fmt.Printf("Book      : %s (%q, %d/%d available)\n", bookID, before.Title, before.Available, before.TotalQuantity)
	fmt.Printf("Readers   : %d\n\n", len(readerIDs))

	results := make([]loanResult, len(readerIDs))
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, rid := range readerIDs {
		wg.Add(1)
		go func(idx int, readerID string) {
			defer wg.Done()
			<-start
			results[idx] = attemptLoan(client, serverAddr, bookID, readerID)
		}(i, strings.TrimSpace(rid))
	}
	close(start)
	wg.Wait()

	var accepted, exhausted, failures int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failures++
			fmt.Printf("  [ERR ] reader=%-38s err=%v\n", r.ReaderID, r.Err)
		case r.StatusCode == http.StatusCreated:
			accepted++
			fmt.Printf("  [LOAN] reader=%-38s status=%d\n", r.ReaderID, r.StatusCode)
		case r.StatusCode == http.StatusConflict:
			exhausted++
			fmt.Printf("  [FULL] reader=%-38s status=%d %s\n", r.ReaderID, r.StatusCode, r.Body)
		default:
			failures++
			fmt.Printf("  [FAIL] reader=%-38s status=%d %s\n", r.ReaderID, r.StatusCode, r.Body)
		}
	}

	after, err := fetchBook(client, serverAddr, bookID)
	if err != nil {
		log.Fatalf("fetch book: %v", err)
	}

	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Accepted  : %d\n", accepted)
	fmt.Printf("Exhausted : %d\n", exhausted)
	fmt.Printf("Failures  : %d\n", failures)
	fmt.Printf("Available : %d -> %d\n\n", before.Available, after.Available)

	ok := true
	if accepted > before.Available {
		fmt.Printf("[FAIL] %d loans accepted but only %d copies were available\n", accepted, before.Available)
		ok = false
	}
	if after.Available < 0 || after.Available != before.Available-accepted {
		fmt.Printf("[FAIL] available=%d, want %d\n", after.Available, before.Available-accepted)
		ok = false
	}
	if failures > 0 {
		fmt.Printf("[WARNING] %d request(s) failed, check server logs\n", failures)
		ok = false
	}
	if !ok {
		os.Exit(1)
	}
	fmt.Println("[OK] counter consistent with accepted loans")
}

func attemptLoan(client *http.Client, serverAddr, bookID, readerID string) loanResult {
	body, _ := json.Marshal(map[string]string{"reader_id": readerID, "book_id": bookID})
	resp, err := client.Post(serverAddr+"/loans", "application/json", bytes.NewReader(body))
	if err != nil {
		return loanResult{ReaderID: readerID, Err: err}
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return loanResult{ReaderID: readerID, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
}

func fetchBook(client *http.Client, serverAddr, bookID string) (*bookState, error) {
	resp, err := client.Get(fmt.Sprintf("%s/books/%s", serverAddr, bookID))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, raw)
	}
	var b bookState
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}
