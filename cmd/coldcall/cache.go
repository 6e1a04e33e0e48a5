package main

import (
	"coldcall-api/internal/config"
	"coldcall-api/internal/services"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache command group.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached search results",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached places result",
		Long: `Clear removes cached provider results so the next search hits Google
again. It only has an effect when REDIS_HOST points at a shared cache;
the in-process cache disappears with the process anyway.`,
		Args: cobra.NoArgs,
		RunE: runCacheClearCmd,
	})
	return cmd
}

func runCacheClearCmd(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()
	cacheCfg, err := config.NewCacheConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !cacheCfg.Enabled {
		fmt.Fprintln(cmd.ErrOrStderr(), "REDIS_HOST is not set; nothing to clear")
		return nil
	}

	cache, err := services.NewRedisCacheService(cmd.Context(), cacheCfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer cache.Close()

	if err := services.ClearSearchCache(cmd.Context(), cache); err != nil {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "search cache cleared")
	return nil
}
