package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ay/mdrender/internal/config"
	"github.com/ay/mdrender/internal/module"
	"github.com/ay/mdrender/request"
)

// readInput returns the contents of the file named by args, or stdin when
// args is empty.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), nil
}

// activate loads the site file and starts a module with its renderer
// settings. The caller deactivates the module.
func activate(sitePath string) (*module.Module, *config.Site, error) {
	site, err := config.LoadSite(sitePath)
	if err != nil {
		return nil, nil, err
	}
	mod := module.New()
	if err := mod.Activate(site.RendererOptions()...); err != nil {
		return nil, nil, err
	}
	return mod, site, nil
}

func newRenderCmd() *cobra.Command {
	var (
		sitePath    string
		contextPath string
		preview     bool
	)

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render Markdown to HTML",
		Long:  "Render a Markdown file (or stdin) to HTML, rewriting links for the given context path and preview mode.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			mod, site, err := activate(sitePath)
			if err != nil {
				return err
			}
			defer func() { _ = mod.Deactivate() }()

			if cmd.Flags().Changed("context-path") {
				site.ContextPath = config.NormalizeContextPath(contextPath)
			}

			rc := request.New()
			request.Add(rc, site.Properties())
			if preview {
				request.Add(rc, request.Preview{})
			}

			renderer, err := mod.Renderer()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), renderer.Render(request.NewContext(cmd.Context(), rc), source))
			return err
		},
	}

	cmd.Flags().StringVar(&sitePath, "site", "", "Site config file (YAML or TOML)")
	cmd.Flags().StringVar(&contextPath, "context-path", request.DefaultContextPath, "Context path prefixed to absolute links")
	cmd.Flags().BoolVar(&preview, "preview", false, "Mark links as preview links")
	return cmd
}

func newExcerptCmd() *cobra.Command {
	var (
		sitePath string
		length   int
	)

	cmd := &cobra.Command{
		Use:   "excerpt [file]",
		Short: "Print a plain-text excerpt of Markdown",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			mod, _, err := activate(sitePath)
			if err != nil {
				return err
			}
			defer func() { _ = mod.Deactivate() }()

			renderer, err := mod.Renderer()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderer.Excerpt(source, length))
			return err
		},
	}

	cmd.Flags().StringVar(&sitePath, "site", "", "Site config file (YAML or TOML)")
	cmd.Flags().IntVarP(&length, "length", "n", 200, "Maximum excerpt length in characters")
	return cmd
}
