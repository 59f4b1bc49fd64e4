package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	app "github.com/jhoicas/entitlements-api/internal/application/entitlement"
	"github.com/jhoicas/entitlements-api/internal/domain/access"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

type rootOptions struct {
	fixturePath string
	today       string
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "entitlementctl",
		Short:        "Evalúa módulos y accesos contra un fixture YAML",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&opts.fixturePath, "fixture", "f", "fixture.yaml", "ruta del fixture YAML")
	root.PersistentFlags().StringVar(&opts.today, "today", "", "fecha de evaluación (YYYY-MM-DD, por defecto hoy)")

	root.AddCommand(newCatalogCmd(opts))
	root.AddCommand(newResolveCmd(opts))
	root.AddCommand(newAuthorizeCmd(opts))
	return root
}

func (o *rootOptions) env(cmd *cobra.Command) (*env, error) {
	today := time.Now().UTC()
	if o.today != "" {
		t, err := time.Parse(dateLayout, o.today)
		if err != nil {
			return nil, fmt.Errorf("--today debe tener formato YYYY-MM-DD: %w", err)
		}
		today = t
	}
	f, err := loadFixture(o.fixturePath)
	if err != nil {
		return nil, err
	}
	return f.build(cmd.Context(), today)
}

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	catalog := &cobra.Command{
		Use:   "catalog",
		Short: "Operaciones sobre el catálogo de módulos y planes",
	}
	catalog.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Valida dependencias (acíclicas, conocidas) y módulos de cada plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.env(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			order := make([]string, 0, len(e.modules.Codes()))
			for _, c := range e.modules.Order() {
				order = append(order, string(c))
			}
			fmt.Fprintf(out, "catálogo válido: %d módulos, %d planes\n", len(e.modules.Codes()), len(e.plans.Plans()))
			fmt.Fprintf(out, "orden topológico: %s\n", strings.Join(order, ", "))

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PLAN\tACTIVO\tMÓDULOS")
			for _, p := range e.plans.Plans() {
				fmt.Fprintf(tw, "%s\t%t\t%s\n", p.Code, p.IsActive, joinCodes(p.ModuleCodes))
			}
			return tw.Flush()
		},
	})
	return catalog
}

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var storeID string
	var explain bool
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Calcula la matriz efectiva de una tienda",
		Example: `  entitlementctl -f fixture.yaml resolve --store 4c2d8e91-1b7a-4d6c-8f5e-3a9b0c1d2e02
  entitlementctl -f fixture.yaml resolve --store 4c2d8e91-... --explain --today 2025-06-15`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.env(cmd)
			if err != nil {
				return err
			}
			res, err := e.svc.ResolveStore(cmd.Context(), storeID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tienda: %s\n", storeID)
			fmt.Fprintf(out, "origen: %s\n", res.Source)
			if res.Plan != nil {
				fmt.Fprintf(out, "plan: %s (asignación %s)\n", res.Plan.Code, res.Assignment.ID)
			}
			fmt.Fprintf(out, "habilitados: %s\n", joinCodes(res.Matrix.EnabledCodes()))
			if !explain {
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MÓDULO\tESTADO\tMOTIVO")
			for _, code := range e.modules.Codes() {
				reason := string(res.Reasons[code])
				if dep, ok := res.BlockedBy[code]; ok {
					reason += " (" + string(dep) + ")"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", code, onOff(res.Matrix.Enabled(code)), reason)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&storeID, "store", "", "ID de la tienda")
	cmd.Flags().BoolVar(&explain, "explain", false, "muestra el motivo de cada módulo")
	_ = cmd.MarkFlagRequired("store")
	return cmd
}

func newAuthorizeCmd(opts *rootOptions) *cobra.Command {
	var (
		storeID   string
		path      string
		role      string
		caps      []string
		superuser bool
		anonymous bool
	)
	cmd := &cobra.Command{
		Use:   "authorize",
		Short: "Evalúa el guard de navegación para un destino",
		Example: `  entitlementctl -f fixture.yaml authorize --store <id> --path /stock --role stocker --caps stock.view
  entitlementctl -f fixture.yaml authorize --store <id> --path /sales --anonymous`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.env(cmd)
			if err != nil {
				return err
			}
			session := access.NewSession()
			if anonymous {
				session.Clear()
			} else {
				user := &entity.User{
					ID:          "entitlementctl",
					StoreID:     storeID,
					Role:        entity.UserRole(role),
					IsSuperuser: superuser,
				}
				for _, c := range caps {
					user.Capabilities = append(user.Capabilities, entity.Capability(c))
				}
				session.Load(true, user)
			}

			d, err := e.svc.AuthorizePath(cmd.Context(), app.AuthorizeInput{Session: session, StoreID: storeID, Path: path})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "decisión: %s\n", d.Kind)
			fmt.Fprintf(out, "motivo: %s\n", d.Reason)
			if d.RedirectTo != "" {
				fmt.Fprintf(out, "redirigir a: %s\n", d.RedirectTo)
			}
			if d.Module != "" {
				fmt.Fprintf(out, "módulo: %s\n", d.Module)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&storeID, "store", "", "ID de la tienda")
	cmd.Flags().StringVar(&path, "path", "", "destino de navegación (ej. /stock)")
	cmd.Flags().StringVar(&role, "role", string(entity.RoleSales), "rol del usuario")
	cmd.Flags().StringSliceVar(&caps, "caps", nil, "capacidades del usuario en la tienda (separadas por coma)")
	cmd.Flags().BoolVar(&superuser, "superuser", false, "usuario superusuario")
	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "sesión sin autenticar")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func joinCodes(codes []entity.ModuleCode) string {
	parts := make([]string, 0, len(codes))
	for _, c := range codes {
		parts = append(parts, string(c))
	}
	return strings.Join(parts, ", ")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
