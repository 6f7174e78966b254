package main

import (
	"context"
	"fmt"
	"log"

	"github.com/Datajang/narajangteo-mcp-server/internal/g2b"
)

func main() {
	source := &g2b.FileSource{Path: "./fixtures/listings.json"}

	// Keyword that should match the canned bids
	keyword := "인공지능"
	bids, total, err := source.SearchBids(context.Background(), keyword, 10)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Keyword: %s\n", keyword)
	fmt.Printf("Bids: %d (total %d)\n", len(bids), total)
	for i, b := range bids {
		fmt.Printf("%d. %s\n", i+1, b.Title)
		fmt.Printf("   기관: %s\n", b.Organization)
		fmt.Printf("   마감: %s\n", b.Closing)
		fmt.Printf("\n")
	}

	// Also check the pre-spec side
	fmt.Println("---")
	keyword2 := "데이터"
	specs, total2, err := source.SearchPreSpecs(context.Background(), keyword2, 10)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Keyword: %s\n", keyword2)
	fmt.Printf("PreSpecs: %d (total %d)\n", len(specs), total2)
	for i, s := range specs {
		fmt.Printf("%d. %s\n", i+1, s.Title)
	}
}
