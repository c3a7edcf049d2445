// Command gatewayctl is a thin operator CLI against the gateway's /admin
// HTTP surface: it signs the account/challenge/pubkey/signature headers
// internal/hiveauth verifies and prints the response. Mode switching and
// output formatting follow the teacher's interactive/dashboard CLI split
// (its internal/cli package): GATEWAYCTL_MODE=dashboard emits single-line
// JSON for scripts and cron jobs, anything else prints human-readable
// text. That split is only two small functions, so they live here
// directly rather than behind their own package, a single caller away.
package main

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/hiveonboard/gateway/internal/hive"
)

func main() {
	if err := realMain(os.Args[1:]); err != nil {
		writeLog(fmt.Sprintf("gatewayctl: %v", err))
		os.Exit(1)
	}
}

// isDashboardMode reports whether GATEWAYCTL_MODE=dashboard, in which case
// output is single-line JSON for scripts and cron jobs rather than
// human-readable text.
func isDashboardMode() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GATEWAYCTL_MODE")), "dashboard")
}

// writeJSON marshals v without indentation and writes it to stdout with a
// trailing newline, dashboard mode's machine-readable output format.
func writeJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintf(os.Stdout, "%s\n", data)
	return err
}

// writeLog writes a human-readable line to stderr, kept separate from
// stdout so dashboard mode's JSON output stream stays uncontaminated.
func writeLog(message string) {
	fmt.Fprintln(os.Stderr, message)
}

var commandPaths = map[string]struct {
	method string
	path   string
}{
	"act-status":      {http.MethodGet, "/admin/act-status"},
	"claim-act":       {http.MethodPost, "/admin/claim-act"},
	"process-pending": {http.MethodPost, "/admin/process-pending"},
	"health":          {http.MethodPost, "/admin/health-check"},
	"rc-costs":        {http.MethodGet, "/admin/rc-costs"},
	"list-channels":   {http.MethodGet, "/admin/channels"},
}

func realMain(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: gatewayctl <act-status|claim-act|process-pending|health|rc-costs|list-channels>")
	}
	cmd, ok := commandPaths[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}

	baseURL := envOrDefault("GATEWAYCTL_BASE_URL", "http://localhost:8080")
	account := os.Getenv("GATEWAYCTL_ADMIN_ACCOUNT")
	activeKey := os.Getenv("GATEWAYCTL_ADMIN_ACTIVE_KEY")
	if account == "" || activeKey == "" {
		return fmt.Errorf("GATEWAYCTL_ADMIN_ACCOUNT and GATEWAYCTL_ADMIN_ACTIVE_KEY must be set")
	}
	privKey, err := hive.DecodeActiveKey(activeKey)
	if err != nil {
		return fmt.Errorf("decode admin active key: %w", err)
	}
	pubkey := hive.EncodePublicKey(privKey.PubKey())

	challenge := strconv.FormatInt(time.Now().Unix(), 10)
	digest := sha256.Sum256([]byte(challenge))
	sig := ecdsa.SignCompact(privKey, digest[:], true)

	req, err := http.NewRequest(cmd.method, baseURL+cmd.path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("account", account)
	req.Header.Set("challenge", challenge)
	req.Header.Set("pubkey", pubkey)
	req.Header.Set("signature", base64.StdEncoding.EncodeToString(sig))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if isDashboardMode() {
		var raw interface{}
		if err := json.Unmarshal(body, &raw); err != nil {
			return writeJSON(map[string]interface{}{"success": false, "error": "malformed response body"})
		}
		return writeJSON(raw)
	}

	var pretty interface{}
	if err := json.Unmarshal(body, &pretty); err == nil {
		indented, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Println(string(indented))
	} else {
		fmt.Println(string(body))
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s returned %s", cmd.method, cmd.path, resp.Status)
	}
	return nil
}

func envOrDefault(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}
