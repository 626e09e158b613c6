package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"radbench/internal/api"
	"radbench/internal/config"
)

var (
	listLimit  int
	listSort   string
	listSearch string
)

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&listLimit, "limit", 0, "maximum number of results")
	cmd.Flags().StringVar(&listSort, "sort", "", "sort key")
	cmd.Flags().StringVar(&listSearch, "search", "", "substring filter")
}

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "Manage test scenarios",
}

var scenariosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var scenarios []api.Scenario
		if err := client.get("/scenarios", listQuery(listLimit, listSort, listSearch), &scenarios); err != nil {
			return err
		}
		if len(scenarios) == 0 {
			printWarning("no scenarios found")
			return nil
		}
		for _, sc := range scenarios {
			fmt.Printf("%s  %s\n", colorize(colorCyan, sc.ID), colorize(colorBold, sc.Name))
			if sc.Description != "" {
				fmt.Printf("    %s\n", sc.Description)
			}
			if len(sc.Tags) > 0 {
				fmt.Printf("    tags: %s\n", strings.Join(sc.Tags, ", "))
			}
			fmt.Printf("    %d steps, modified %s\n", len(sc.Steps), sc.LastModified.Local().Format(time.RFC3339))
		}
		return nil
	},
}

var scenariosShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a scenario as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var sc api.Scenario
		if err := client.get("/scenarios/"+args[0], nil, &sc); err != nil {
			return err
		}
		return printJSON(sc)
	},
}

var (
	scenarioName        string
	scenarioDescription string
	scenarioTags        []string
	scenarioFile        string
)

var scenariosCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a scenario",
	Long:  "Create a scenario from flags, or from a full JSON definition with --file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var req api.CreateScenarioRequest
		if scenarioFile != "" {
			data, err := os.ReadFile(scenarioFile)
			if err != nil {
				return fmt.Errorf("reading scenario file: %w", err)
			}
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("parsing scenario file: %w", err)
			}
		}
		if scenarioName != "" {
			req.Name = scenarioName
		}
		if scenarioDescription != "" {
			req.Description = scenarioDescription
		}
		if len(scenarioTags) > 0 {
			req.Tags = scenarioTags
		}
		if req.Name == "" {
			return fmt.Errorf("--name or a --file with a name is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var sc api.Scenario
		if err := client.post("/scenarios", req, &sc); err != nil {
			return err
		}
		printSuccess("created scenario %s (%s)", sc.Name, sc.ID)
		return nil
	},
}

var interactionsCmd = &cobra.Command{
	Use:   "interactions",
	Short: "Browse and record AI interaction logs",
}

var interactionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List interactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var interactions []api.Interaction
		if err := client.get("/interactions", listQuery(listLimit, listSort, listSearch), &interactions); err != nil {
			return err
		}
		if len(interactions) == 0 {
			printWarning("no interactions found")
			return nil
		}
		for _, it := range interactions {
			input := it.Input
			if len(input) > 60 {
				input = input[:60] + "..."
			}
			fmt.Printf("%s  %-8s %s  %s\n",
				colorize(colorCyan, it.ID),
				it.Kind,
				it.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				input)
		}
		return nil
	},
}

var interactionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an interaction as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var it api.Interaction
		if err := client.get("/interactions/"+args[0], nil, &it); err != nil {
			return err
		}
		return printJSON(it)
	},
}

var (
	interactionKind   string
	interactionInput  string
	interactionOutput string
)

var interactionsLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Record an interaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		req := api.CreateInteractionRequest{
			Kind:   interactionKind,
			Input:  interactionInput,
			Output: interactionOutput,
		}
		var it api.Interaction
		if err := client.post("/interactions", req, &it); err != nil {
			return err
		}
		printSuccess("logged interaction %s", it.ID)
		return nil
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage operator accounts",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		var users []api.User
		if err := client.get("/users", listQuery(listLimit, listSort, listSearch), &users); err != nil {
			return err
		}
		if len(users) == 0 {
			printWarning("no users found")
			return nil
		}
		for _, u := range users {
			lastLogin := "never"
			if u.LastLogin != nil {
				lastLogin = u.LastLogin.Local().Format("2006-01-02 15:04")
			}
			fmt.Printf("%s  %-30s %-10s %-8s last login: %s\n",
				colorize(colorCyan, u.ID), u.Email, u.Role, u.Status, lastLogin)
		}
		return nil
	},
}

var (
	inviteEmail string
	inviteName  string
	inviteRole  string
)

var usersInviteCmd = &cobra.Command{
	Use:   "invite",
	Short: "Invite a new user",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		req := api.CreateUserRequest{
			Email: inviteEmail,
			Name:  inviteName,
			Role:  inviteRole,
		}
		var u api.User
		if err := client.post("/users", req, &u); err != nil {
			return err
		}
		printSuccess("invited %s (%s) as %s", u.Name, u.Email, u.Role)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and modify configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, info := range config.ShowAll(cfg) {
			fmt.Printf("%-20s %-30s (env: %s)\n", colorize(colorBold, info.Key), info.Value, info.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(args[0], args[1]); err != nil {
			printError("%v", err)
			fmt.Printf("valid keys: %s\n", strings.Join(config.ValidKeys(), ", "))
			return err
		}
		printSuccess("%s = %s", args[0], args[1])
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	addListFlags(scenariosListCmd)
	scenariosCreateCmd.Flags().StringVar(&scenarioName, "name", "", "scenario name")
	scenariosCreateCmd.Flags().StringVar(&scenarioDescription, "description", "", "scenario description")
	scenariosCreateCmd.Flags().StringSliceVar(&scenarioTags, "tags", nil, "scenario tags")
	scenariosCreateCmd.Flags().StringVar(&scenarioFile, "file", "", "JSON file with the full scenario definition")
	scenariosCmd.AddCommand(scenariosListCmd, scenariosShowCmd, scenariosCreateCmd)

	addListFlags(interactionsListCmd)
	interactionsLogCmd.Flags().StringVar(&interactionKind, "kind", "", "interaction kind (generate or explain)")
	interactionsLogCmd.Flags().StringVar(&interactionInput, "input", "", "encoded request payload")
	interactionsLogCmd.Flags().StringVar(&interactionOutput, "output", "", "encoded response payload")
	interactionsLogCmd.MarkFlagRequired("kind")
	interactionsLogCmd.MarkFlagRequired("input")
	interactionsCmd.AddCommand(interactionsListCmd, interactionsShowCmd, interactionsLogCmd)

	addListFlags(usersListCmd)
	usersInviteCmd.Flags().StringVar(&inviteEmail, "email", "", "email address")
	usersInviteCmd.Flags().StringVar(&inviteName, "name", "", "display name")
	usersInviteCmd.Flags().StringVar(&inviteRole, "role", "", "role (default operator)")
	usersInviteCmd.MarkFlagRequired("email")
	usersInviteCmd.MarkFlagRequired("name")
	usersCmd.AddCommand(usersListCmd, usersInviteCmd)

	configCmd.AddCommand(configShowCmd, configSetCmd)
}
