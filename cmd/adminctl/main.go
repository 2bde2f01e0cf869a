// adminctl signs the challenge for a privileged ledger operation using the
// credentials a node wrote to admin_credentials.json. The printed JSON body
// is posted as-is to /api/admin/reset or /api/admin/close-voting.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"bharote-backend/service"
)

func main() {
	dataDir := flag.String("data-dir", "ledger_data", "Directory holding admin_credentials.json")
	action := flag.String("action", "", "Admin action to authorize: reset or close-voting")
	flag.Parse()

	if *action != "reset" && *action != "close-voting" {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(filepath.Join(*dataDir, "admin_credentials.json"))
	if err != nil {
		log.Fatalf("Failed to read admin credentials: %v", err)
	}
	var creds service.AdminCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		log.Fatalf("Failed to parse admin credentials: %v", err)
	}

	now := time.Now().Unix()
	signature, err := service.SignChallengeWithKey(creds.PrivateKey, *action, now)
	if err != nil {
		log.Fatalf("Failed to sign challenge: %v", err)
	}

	body, err := json.MarshalIndent(map[string]interface{}{
		"signature": signature,
		"timestamp": now,
	}, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal request body: %v", err)
	}
	fmt.Println(string(body))
}
