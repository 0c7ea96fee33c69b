package setup

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/quantarb/marketprofile/config"
)

// GeneratedConfigFile is where the wizard writes its result.
const GeneratedConfigFile = "config.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard.
func RunTUI() error {
	var (
		platform       string
		symbol         string
		priceInterval  string
		rollingWindow  string
		warmupSeconds  string
		listenAddr     string
		qtyShift       string
		simBasePrice   string
		tickIntervalIn string
		confirm        bool
	)

	// defaults
	priceInterval = "1"
	rollingWindow = "60"
	warmupSeconds = "15"
	listenAddr = config.DefaultListenAddr
	qtyShift = "0"
	simBasePrice = "25000"
	tickIntervalIn = "200ms"

	// step 1: welcome
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("MARKETPROFILE CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Set up the analyzer in a few steps.\n"))

	// platform
	fmt.Println(stepStyle.Render("STEP 1: DATA SOURCE"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select data platform").
				Options(
					huh.NewOption("Binance", "binance"),
					huh.NewOption("Bybit", "bybit"),
					huh.NewOption("Simulation", "simulate"),
				).
				Value(&platform),
		),
	).Run()
	if err != nil {
		return err
	}

	// symbol
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("MARKETPROFILE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: INSTRUMENT"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Symbol").
				Description("Instrument symbol (e.g. BTCUSDT)").
				Value(&symbol).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("symbol cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Quantity Shift").
				Description("Decimal shift turning fractional trade sizes into lots, 0 for integer markets").
				Value(&qtyShift).
				Validate(validateInt),
		),
	).Run()
	if err != nil {
		return err
	}

	// engine parameters
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("MARKETPROFILE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: PROFILE SETTINGS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Price Interval").
				Description("Bucket width of the session profile (e.g. 1 or 0.05)").
				Value(&priceInterval).
				Validate(validatePositiveNumber),
			huh.NewInput().
				Title("Rolling Window (minutes)").
				Description("Trailing span of the rolling profile and delta").
				Value(&rollingWindow).
				Validate(validateInt),
			huh.NewInput().
				Title("Warm-up (seconds)").
				Description("Session span during which relative rankings read 100").
				Value(&warmupSeconds).
				Validate(validateInt),
		),
	).Run()
	if err != nil {
		return err
	}

	// simulation specifics
	if platform == "simulate" {
		fmt.Print("\033[H\033[2J")
		fmt.Println(headerStyle.Render("MARKETPROFILE CONFIG WIZARD"))
		fmt.Println(stepStyle.Render("STEP 4: SIMULATION"))
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Base Price").
					Description("Starting price of the random walk").
					Value(&simBasePrice).
					Validate(validatePositiveNumber),
				huh.NewInput().
					Title("Tick Interval").
					Description("Duration string (e.g. 200ms, 1s)").
					Value(&tickIntervalIn).
					Validate(func(s string) error {
						_, err := time.ParseDuration(s)
						return err
					}),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	// web
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("MARKETPROFILE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 5: DASHBOARD"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen Address").
				Description("Web dashboard address (e.g. :8080)").
				Value(&listenAddr),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("MARKETPROFILE CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Platform: %s\nSymbol: %s\nPrice interval: %s\nRolling window: %s min\nDashboard: %s\n",
		platform, symbol, priceInterval, rollingWindow, listenAddr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	// generate config
	priceIntervalF, _ := strconv.ParseFloat(priceInterval, 64)
	rollingWindowN, _ := strconv.Atoi(rollingWindow)
	warmupN, _ := strconv.Atoi(warmupSeconds)
	qtyShiftN, _ := strconv.Atoi(qtyShift)
	basePriceF, _ := strconv.ParseFloat(simBasePrice, 64)
	tickInterval, _ := time.ParseDuration(tickIntervalIn)

	cfgTmp := config.ConfigTmp{
		Platform:         platform,
		Symbol:           symbol,
		QtyShift:         qtyShiftN,
		PriceInterval:    priceIntervalF,
		RollingWindowMin: rollingWindowN,
		WarmupSeconds:    warmupN,
		ListenAddr:       listenAddr,
	}
	if platform == "simulate" {
		cfgTmp.SimBasePrice = basePriceF
		cfgTmp.SimTickInterval = tickInterval
	}

	configs := []config.ConfigTmp{cfgTmp}

	data, err := yaml.Marshal(configs)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	if err := os.WriteFile(GeneratedConfigFile, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting analyzer...", GeneratedConfigFile)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func validatePositiveNumber(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateInt(s string) error {
	if _, err := strconv.Atoi(s); err != nil {
		return fmt.Errorf("must be an integer")
	}
	return nil
}
