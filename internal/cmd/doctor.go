package cmd

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lhzou/blpapi-mcp/internal/blp"
	"github.com/lhzou/blpapi-mcp/internal/config"
	"github.com/lhzou/blpapi-mcp/internal/fs"
	"github.com/lhzou/blpapi-mcp/internal/ratelimit"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check Bloomberg connectivity and diagnose issues",
	Long:  `Verifies the server setup and reports any issues.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDoctor()
	},
}

func runDoctor() error {
	fmt.Println("blpapi-mcp Doctor")
	fmt.Println("=================")
	fmt.Println()

	allGood := true

	// Check 1: config loads
	cfg, err := config.Load(flagConfig)
	if err == nil {
		printCheck(true, "configuration is valid")
	} else {
		printCheck(false, "configuration is valid")
		fmt.Printf("     %v\n", err)
		cfg = config.Default()
		allGood = false
	}

	// Check 2: blpapi SDK compiled in
	if blp.SDKAvailable() {
		printCheck(true, "blpapi SDK support compiled in")
	} else {
		printCheck(false, "blpapi SDK support compiled in")
		fmt.Println("     Rebuild with -tags blpapi and the Bloomberg C SDK installed")
		allGood = false
	}

	// Check 3: Terminal reachable (BBComm listens on the terminal port)
	addr := net.JoinHostPort(cfg.Terminal.Host, strconv.Itoa(cfg.Terminal.Port))
	if conn, err := net.DialTimeout("tcp", addr, 3*time.Second); err == nil {
		conn.Close()
		printCheck(true, fmt.Sprintf("bloomberg terminal reachable at %s", addr))
	} else {
		printCheck(false, fmt.Sprintf("bloomberg terminal reachable at %s", addr))
		fmt.Println("     Is the Terminal running and logged in on this machine?")
		allGood = false
	}

	// Check 4: rate limit state
	if !fs.FileExists(cfg.RateLimit.StatePath) {
		printOptional(fmt.Sprintf("no usage recorded yet at %s", cfg.RateLimit.StatePath))
	}
	limiter, err := ratelimit.New(ratelimit.Options{
		StatePath:     cfg.RateLimit.StatePath,
		DailyLimit:    cfg.RateLimit.DailyLimit,
		Timezone:      cfg.RateLimit.Timezone,
		RetentionDays: cfg.RateLimit.RetentionDays,
	})
	if err == nil {
		printCheck(true, fmt.Sprintf("rate limit state usable (%d of %d hits used today)",
			limiter.Count(), limiter.Limit()))
		if used, ok := limiter.YesterdayUsage(); ok {
			printOptional(fmt.Sprintf("yesterday: %d hits", used))
		}
	} else {
		printCheck(false, "rate limit state usable")
		fmt.Printf("     %v\n", err)
		allGood = false
	}

	fmt.Println()
	if allGood {
		fmt.Println("Everything looks good.")
	} else {
		fmt.Println("Some issues found. See above for details.")
	}
	return nil
}

func printCheck(ok bool, msg string) {
	if ok {
		fmt.Printf("  [ok] %s\n", msg)
	} else {
		fmt.Printf("  [!!] %s\n", msg)
	}
}

func printOptional(msg string) {
	fmt.Printf("  [--] %s\n", msg)
}
