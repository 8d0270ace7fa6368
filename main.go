package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumivault/lumivault/commands"
	"github.com/lumivault/lumivault/internal/api"
	"github.com/lumivault/lumivault/internal/kvstore"
	"github.com/lumivault/lumivault/internal/pending"
	"github.com/lumivault/lumivault/lumivaultconfig"
)

const lumivault = "lumivault"

func main() {
	var configPath string
	var config lumivaultconfig.LumivaultConfig

	rootCmd := cobra.Command{
		Use:   lumivault,
		Short: "Back up photos and videos to an encrypted vault",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			config, err = lumivaultconfig.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := config.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file")

	// TODO: add version command.

	uploadCmd := cobra.Command{
		Use:   "upload [paths...]",
		Short: "Encrypt and upload photos and videos",
		Long: `Encrypt and upload photos and videos to the vault.
Pass files or folders as arguments, or zip archives with --zip.
Folders become albums; use --album to force a single album name or
--separate-albums to create one album per folder.`,
		Args: cobra.ArbitraryArgs,
		Run: func(cmd *cobra.Command, args []string) {
			album, err := cmd.Flags().GetString("album")
			if err != nil {
				fmt.Fprintln(os.Stderr, "error: invalid album flag:", err)
				os.Exit(1)
			}
			zips, err := cmd.Flags().GetStringSlice("zip")
			if err != nil {
				fmt.Fprintln(os.Stderr, "error: invalid zip flag:", err)
				os.Exit(1)
			}
			separate, err := cmd.Flags().GetBool("separate-albums")
			if err != nil {
				fmt.Fprintln(os.Stderr, "error: invalid separate-albums flag:", err)
				os.Exit(1)
			}
			retry, err := cmd.Flags().GetBool("retry")
			if err != nil {
				fmt.Fprintln(os.Stderr, "error: invalid retry flag:", err)
				os.Exit(1)
			}
			if len(args) == 0 && len(zips) == 0 {
				fmt.Fprintln(os.Stderr, "error: nothing to upload, pass files, folders, or --zip archives")
				os.Exit(1)
			}

			if err := runUpload(config, commands.UploadOptions{
				Paths:          args,
				Zips:           zips,
				AlbumName:      album,
				SeparateAlbums: separate,
				Retry:          retry,
			}); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				os.Exit(1)
			}
		},
	}
	uploadCmd.Flags().StringP("album", "a", "", "Upload everything into one album with this name")
	uploadCmd.Flags().Bool("separate-albums", false, "Create one album per folder")
	uploadCmd.Flags().StringSliceP("zip", "z", nil, "Upload the contents of a zip archive (repeatable)")
	uploadCmd.Flags().Bool("retry", false, "Retry failed files once before giving up")
	rootCmd.AddCommand(&uploadCmd)

	resumeCmd := cobra.Command{
		Use:   "resume",
		Short: "Resume an interrupted upload",
		Long: `Resume the most recent interrupted upload.
Files already in the vault are skipped by the server, so resuming after
a partial upload only transfers what is missing.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runResume(config); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				os.Exit(1)
			}
		},
	}
	rootCmd.AddCommand(&resumeCmd)

	albumsCmd := cobra.Command{
		Use:   "albums",
		Short: "List your albums in the vault",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			client := api.NewClient(ctx, config.Remote.BaseURL, config.Remote.Token)
			if err := commands.ListAlbums(ctx, client); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				os.Exit(1)
			}
		},
	}
	rootCmd.AddCommand(&albumsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runUpload(config lumivaultconfig.LumivaultConfig, opts commands.UploadOptions) error {
	ctx := context.Background()
	store, err := openStateStore(config)
	if err != nil {
		return err
	}
	defer store.Close()

	client := api.NewClient(ctx, config.Remote.BaseURL, config.Remote.Token)
	return commands.Upload(ctx, &config, client, pending.NewTracker(store), opts)
}

func runResume(config lumivaultconfig.LumivaultConfig) error {
	ctx := context.Background()
	store, err := openStateStore(config)
	if err != nil {
		return err
	}
	defer store.Close()

	client := api.NewClient(ctx, config.Remote.BaseURL, config.Remote.Token)
	return commands.Resume(ctx, &config, client, pending.NewTracker(store))
}

func openStateStore(config lumivaultconfig.LumivaultConfig) (*kvstore.Store, error) {
	stateDir, err := config.StateDirPath()
	if err != nil {
		return nil, err
	}
	store, err := kvstore.Open(stateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return store, nil
}
