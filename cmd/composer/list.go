package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kingrea/contract-composer/internal/catalog"
	"github.com/kingrea/contract-composer/internal/validation"
)

func newListCommand(opts *rootOptions) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List base templates and modules in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, log, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer log.Close()

			cat := svc.Catalog()
			out := newPrinter(cmd.OutOrStdout())
			var mods []catalog.Module
			if category != "" {
				c := catalog.Category(category)
				if !c.Valid() {
					return fmt.Errorf("unknown category %q", category)
				}
				mods = cat.ByCategory(c)
			} else {
				mods, err = cat.Select(cat.ModuleNames()...)
				if err != nil {
					return err
				}
			}

			if category == "" {
				out.printf("%s\n", out.title.Render("Base templates"))
				for _, name := range cat.BaseNames() {
					base, err := cat.Base(name)
					if err != nil {
						return err
					}
					out.printf("  %-16s %-8s %s\n", base.Name, base.Version, base.Description)
					if len(base.Slots) > 0 {
						slots := make([]string, 0, len(base.Slots))
						for _, def := range base.Slots {
							slots = append(slots, def.Name)
						}
						out.printf("  %-16s %s\n", "", out.dim.Render("slots: "+strings.Join(slots, ", ")))
					}
					if names := base.TypeParamNames(); len(names) > 0 {
						params := make([]string, 0, len(names))
						for _, name := range names {
							param := name
							if def := base.TypeParams[name].Default; def != "" {
								param += "=" + def
							}
							if !base.UsesTypeParam(name) {
								param += " (unused)"
							}
							params = append(params, param)
						}
						out.printf("  %-16s %s\n", "", out.dim.Render("type params: "+strings.Join(params, ", ")))
					}
				}
				out.printf("\n")
			}

			out.printf("%s\n", out.title.Render("Modules"))
			if len(mods) == 0 {
				out.printf("  %s\n", out.dim.Render("none"))
				return nil
			}
			for _, mod := range mods {
				flags := []string{string(mod.Category)}
				if mod.Exclusive {
					flags = append(flags, "exclusive")
				}
				if len(mod.Requires) > 0 {
					flags = append(flags, "requires "+strings.Join(mod.Requires, ","))
				}
				size := humanize.Bytes(uint64(validation.ModuleSize(mod)))
				out.printf("  %-16s %-8s ~%-8s %s\n", mod.Name, mod.Version, size, mod.Description)
				out.printf("  %-16s %s\n", "", out.dim.Render(strings.Join(flags, " · ")))
				if mod.Deprecated != "" {
					out.printf("  %-16s %s\n", "", out.warn.Render("deprecated: "+mod.Deprecated))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list modules in this category")
	return cmd
}
