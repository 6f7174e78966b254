package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Datajang/narajangteo-mcp-server/internal/g2b"
)

func main() {
	key := os.Getenv("NARA_API_KEY")
	if key == "" { key = os.Getenv("SERVICE_KEY") }
	keyword := "인공지능"
	if len(os.Args) > 1 { keyword = os.Args[1] }
	client := &http.Client{ Timeout: 20 * time.Second }
	src := &g2b.Client{BaseURL: os.Getenv("NARA_BASE_URL"), ServiceKey: key, HTTPClient: client, UserAgent: "debugbids/1.0"}
	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()
	bids, total, err := src.SearchBids(ctx, keyword, 5)
	fmt.Println("bids err:", err, "total:", total)
	for i, b := range bids {
		fmt.Printf("%d. %s — %s (마감 %s)\n", i+1, b.Title, b.Organization, b.Closing)
	}
	specs, total, err := src.SearchPreSpecs(ctx, keyword, 5)
	fmt.Println("prespecs err:", err, "total:", total)
	for i, s := range specs {
		fmt.Printf("%d. %s — %s (의견마감 %s)\n", i+1, s.Title, s.Organization, s.Closing)
	}
}
