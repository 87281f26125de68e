package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"expedientes/internal/app"
	"expedientes/internal/config"
	"expedientes/internal/db"
	"expedientes/internal/domain"
	"expedientes/internal/engine"
	"expedientes/internal/migrate"
	"expedientes/internal/repo"
	"expedientes/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "expd",
	Short: "Expedientes CLI",
	Long: `Expedientes manages the lifecycle of civil court cases in a juzgado.
Core concepts:
- Workspace: your .expedientes directory with the database; the juzgado config lives in the DB and is imported explicitly.
- Proceso: the expediente; its estado walks BORRADOR -> PRESENTADO -> ADMITIDO -> CITADO -> CONTESTADO -> audiencias -> PARA_SENTENCIA -> ARCHIVADO.
- Demanda: the filing; it can be observada and subsanada before admission assigns the NUREJ.
- Citacion: service of process on the demandado; three failed attempts recommend citacion por edicto.
- Contestacion: the answer (negacion, allanamiento, excepcion previa or reconvencion).
- Plazos: calendar-day deadlines for subsanacion and contestacion; 'expd plazos barrer' expires the overdue ones.
- Resoluciones y sentencia: judicial documents, hashed and frozen once notified.
- Event log: diary of every change, view with 'expd log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("EXPEDIENTES")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "", "actor identifier")
	rootCmd.PersistentFlags().String("juzgado", "", "juzgado id (overrides config default)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("juzgado", rootCmd.PersistentFlags().Lookup("juzgado"))
}

func registerCommands() {
	rootCmd.AddCommand(juzgadoCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(juezCmd())
	rootCmd.AddCommand(secretarioCmd())
	rootCmd.AddCommand(abogadoCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(procesoCmd())
	rootCmd.AddCommand(demandaCmd())
	rootCmd.AddCommand(citacionCmd())
	rootCmd.AddCommand(contestacionCmd())
	rootCmd.AddCommand(audienciaCmd())
	rootCmd.AddCommand(resolucionCmd())
	rootCmd.AddCommand(sentenciaCmd())
	rootCmd.AddCommand(plazosCmd())
	rootCmd.AddCommand(notificacionCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func juzgadoCmd() *cobra.Command {
	jz := &cobra.Command{Use: "juzgado", Short: "Manage juzgados"}
	jz.AddCommand(juzgadoInitCmd())
	jz.AddCommand(juzgadoListCmd())
	return jz
}

func juzgadoInitCmd() *cobra.Command {
	var id, codigo, nombre, materia string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a juzgado with its default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id required")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				cfg := config.Default(id)
				if codigo != "" {
					cfg.Juzgado.Codigo = codigo
				}
				if nombre != "" {
					cfg.Juzgado.Nombre = nombre
				}
				if materia != "" {
					cfg.Juzgado.Materia = materia
				}
				now := time.Now().UTC().Format(time.RFC3339)
				tx, err := r.DB.BeginTx(ctx, nil)
				if err != nil {
					return err
				}
				defer tx.Rollback()
				j := domain.Juzgado{
					ID:        id,
					Codigo:    cfg.Juzgado.Codigo,
					Nombre:    cfg.Juzgado.Nombre,
					Materia:   cfg.Juzgado.Materia,
					CreatedAt: now,
				}
				if err := r.InsertJuzgado(ctx, tx, j); err != nil {
					return err
				}
				if err := r.UpsertJuzgadoConfigTx(ctx, tx, id, cfg); err != nil {
					return err
				}
				if err := tx.Commit(); err != nil {
					return err
				}
				return printJSONOrTable(j)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "juzgado id")
	cmd.Flags().StringVar(&codigo, "codigo", "", "codigo for NUREJ numbering")
	cmd.Flags().StringVar(&nombre, "nombre", "", "nombre")
	cmd.Flags().StringVar(&materia, "materia", "", "materia (default CIVIL)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func juzgadoListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List juzgados",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListJuzgados(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect juzgado config",
		Long:  "Config is the procedural rulebook stored in the DB: plazos de contestacion y subsanacion, max intentos de citacion, and the deletion window for resoluciones. Import from expedientes.yml if desired.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configImportCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	}
	return cmd
}

func configImportCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import juzgado config from YAML into the DB",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(filePath)
			if err != nil {
				return err
			}
			cfg, err := config.FromYAML(data)
			if err != nil {
				return err
			}
			juzgadoID := cfg.Juzgado.ID
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				if juzgadoID == "" {
					juzgadoID = e.Config.Juzgado.ID
				}
				if err := e.Repo.UpsertJuzgadoConfig(ctx, juzgadoID, cfg); err != nil {
					return err
				}
				return printJSONOrTable(cfg)
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to YAML config")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate stored config",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.Config.Validate()
			})
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show juzgado status",
		Long:  "See the scoreboard for the juzgado: proceso counts per estado.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				j, err := e.Repo.GetJuzgado(ctx, e.Config.Juzgado.ID)
				if err != nil {
					return err
				}
				counts, err := e.Repo.CountProcesosByEstado(ctx, j.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"juzgado_id":     j.ID,
						"codigo":         j.Codigo,
						"proceso_counts": counts,
					})
				}
				fmt.Printf("Juzgado: %s (%s) %s\n", j.ID, j.Codigo, j.Nombre)
				fmt.Println("Procesos:")
				for estado, c := range counts {
					fmt.Printf("  %s: %d\n", estado, c)
				}
				return nil
			})
		},
	}
	return cmd
}

func juezCmd() *cobra.Command {
	jz := &cobra.Command{Use: "juez", Short: "Manage jueces"}
	jz.AddCommand(juezAddCmd())
	jz.AddCommand(juezListCmd())
	return jz
}

func juezAddCmd() *cobra.Command {
	var id, nombre string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a juez in the juzgado",
		RunE: func(cmd *cobra.Command, args []string) error {
			if nombre == "" {
				return fmt.Errorf("--nombre required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				if id == "" {
					id = uuid.New().String()
				}
				j := domain.Juez{
					ID:        id,
					JuzgadoID: e.Config.Juzgado.ID,
					Nombre:    nombre,
					Activo:    true,
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := e.Repo.InsertJuez(ctx, j); err != nil {
					return err
				}
				return printJSONOrTable(j)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "juez id (random UUID if omitted)")
	cmd.Flags().StringVar(&nombre, "nombre", "", "nombre completo")
	_ = cmd.MarkFlagRequired("nombre")
	return cmd
}

func juezListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jueces",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.Repo.ListJueces(ctx, e.Config.Juzgado.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func secretarioCmd() *cobra.Command {
	sec := &cobra.Command{Use: "secretario", Short: "Manage secretarios"}
	var id, nombre string
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a secretario in the juzgado",
		RunE: func(cmd *cobra.Command, args []string) error {
			if nombre == "" {
				return fmt.Errorf("--nombre required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				if id == "" {
					id = uuid.New().String()
				}
				s := domain.Secretario{
					ID:        id,
					JuzgadoID: e.Config.Juzgado.ID,
					Nombre:    nombre,
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := e.Repo.InsertSecretario(ctx, s); err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	add.Flags().StringVar(&id, "id", "", "secretario id (random UUID if omitted)")
	add.Flags().StringVar(&nombre, "nombre", "", "nombre completo")
	_ = add.MarkFlagRequired("nombre")
	sec.AddCommand(add)
	return sec
}

func abogadoCmd() *cobra.Command {
	ab := &cobra.Command{Use: "abogado", Short: "Manage abogados"}
	ab.AddCommand(abogadoAddCmd())
	ab.AddCommand(abogadoListCmd())
	return ab
}

func abogadoAddCmd() *cobra.Command {
	var id, nombre, matricula string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register an abogado",
		RunE: func(cmd *cobra.Command, args []string) error {
			if nombre == "" || matricula == "" {
				return fmt.Errorf("--nombre and --matricula required")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if id == "" {
					id = uuid.New().String()
				}
				a := domain.Abogado{
					ID:        id,
					Nombre:    nombre,
					Matricula: matricula,
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := r.InsertAbogado(ctx, a); err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "abogado id (random UUID if omitted)")
	cmd.Flags().StringVar(&nombre, "nombre", "", "nombre completo")
	cmd.Flags().StringVar(&matricula, "matricula", "", "matricula profesional")
	_ = cmd.MarkFlagRequired("nombre")
	_ = cmd.MarkFlagRequired("matricula")
	return cmd
}

func abogadoListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List abogados",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAbogados(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func apikeyCmd() *cobra.Command {
	ak := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	ak.AddCommand(apikeyCreateCmd())
	ak.AddCommand(apikeyListCmd())
	ak.AddCommand(apikeyDeleteCmd())
	return ak
}

func apikeyCreateCmd() *cobra.Command {
	var actor, rol, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for an actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if actor == "" {
				return fmt.Errorf("--actor required")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				// The raw key is shown once; only its hash is stored.
				raw := uuid.New().String() + uuid.New().String()
				k := domain.APIKey{
					ID:        uuid.New().String(),
					ActorID:   actor,
					Rol:       rol,
					Name:      name,
					KeyHash:   repo.HashAPIKey(raw),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := r.InsertAPIKey(ctx, k); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"api_key": raw, "id": k.ID, "actor_id": k.ActorID})
				}
				fmt.Printf("API key created for %s (id %s):\n%s\n", k.ActorID, k.ID, raw)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "actor id the key authenticates as")
	cmd.Flags().StringVar(&rol, "rol", "", "informative rol label")
	cmd.Flags().StringVar(&name, "name", "", "key name")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAPIKeys(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	return cmd
}

func procesoCmd() *cobra.Command {
	p := &cobra.Command{
		Use:   "proceso",
		Short: "Manage procesos",
		Long:  "Procesos are the expedientes of the juzgado. Create one in BORRADOR, file the demanda, and follow the estado machine through citacion, contestacion, audiencias and sentencia.",
	}
	p.AddCommand(procesoCrearCmd())
	p.AddCommand(procesoListCmd())
	p.AddCommand(procesoGetCmd())
	p.AddCommand(procesoExpedienteCmd())
	return p
}

func procesoCrearCmd() *cobra.Command {
	var opts engine.CrearProcesoOptions
	cmd := &cobra.Command{
		Use:   "crear",
		Short: "Create a proceso in BORRADOR",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				opts.JuzgadoID = e.Config.Juzgado.ID
				p, err := e.CrearProceso(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.TipoProceso, "tipo", "ORDINARIO", "tipo de proceso")
	cmd.Flags().StringVar(&opts.Materia, "materia", "", "materia (defaults to juzgado materia)")
	cmd.Flags().StringVar(&opts.DemandanteNombre, "demandante", "", "nombre del demandante")
	cmd.Flags().StringVar(&opts.DemandadoNombre, "demandado", "", "nombre del demandado")
	_ = cmd.MarkFlagRequired("demandante")
	_ = cmd.MarkFlagRequired("demandado")
	return cmd
}

func procesoListCmd() *cobra.Command {
	var f repo.ProcesoFilters
	var limit int
	var cursor string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List procesos",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				f.JuzgadoID = e.Config.Juzgado.ID
				items, next, err := e.Repo.ListProcesos(ctx, f, limit, cursor)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"items": items, "next_cursor": next})
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "NUREJ", "Tipo", "Estado", "Demandante", "Demandado"})
				for _, p := range items {
					nurej := ""
					if p.Nurej != nil {
						nurej = *p.Nurej
					}
					tw.AppendRow(table.Row{p.ID, nurej, p.TipoProceso, p.Estado, p.DemandanteNombre, p.DemandadoNombre})
				}
				tw.Render()
				if next != "" {
					fmt.Printf("next cursor: %s\n", next)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Estado, "estado", "", "estado filter")
	cmd.Flags().StringVar(&f.AbogadoID, "abogado", "", "abogado filter (either party)")
	cmd.Flags().StringVar(&f.JuezID, "juez", "", "juez filter")
	cmd.Flags().StringVar(&f.Search, "search", "", "search demandante/demandado/nurej")
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	cmd.Flags().StringVar(&cursor, "cursor", "", "pagination cursor")
	return cmd
}

func procesoGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get proceso",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				p, err := e.Repo.GetProceso(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func procesoExpedienteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expediente <id>",
		Short: "Show the full expediente of a proceso",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				p, err := e.Repo.GetProceso(ctx, args[0])
				if err != nil {
					return err
				}
				out := map[string]any{"proceso": p}
				if demandas, err := e.Repo.ListDemandas(ctx, p.ID); err == nil {
					out["demandas"] = demandas
				}
				if citaciones, err := e.Repo.ListCitaciones(ctx, p.ID); err == nil {
					out["citaciones"] = citaciones
				}
				if contestaciones, err := e.Repo.ListContestaciones(ctx, p.ID); err == nil {
					out["contestaciones"] = contestaciones
				}
				if audiencias, err := e.Repo.ListAudiencias(ctx, p.ID); err == nil {
					out["audiencias"] = audiencias
				}
				if plazos, err := e.Repo.ListPlazos(ctx, repo.PlazoFilters{ProcesoID: p.ID}); err == nil {
					out["plazos"] = plazos
				}
				if resoluciones, err := e.Repo.ListResoluciones(ctx, p.ID); err == nil {
					out["resoluciones"] = resoluciones
				}
				if s, err := e.Repo.GetSentenciaByProceso(ctx, p.ID); err == nil {
					out["sentencia"] = s
				}
				return printJSONOrTable(out)
			})
		},
		Args: cobra.ExactArgs(1),
	}
	return cmd
}

func demandaCmd() *cobra.Command {
	d := &cobra.Command{
		Use:   "demanda",
		Short: "Manage demandas",
		Long:  "The demanda flows presentar -> (observar -> subsanar)* -> admitir or rechazar. Admission assigns the NUREJ and emits the providencia de admision.",
	}
	d.AddCommand(demandaPresentarCmd())
	d.AddCommand(demandaObservarCmd())
	d.AddCommand(demandaSubsanarCmd())
	d.AddCommand(demandaAdmitirCmd())
	d.AddCommand(demandaRechazarCmd())
	return d
}

func demandaPresentarCmd() *cobra.Command {
	var opts engine.PresentarDemandaOptions
	var cuantia float64
	cmd := &cobra.Command{
		Use:   "presentar <proceso-id>",
		Short: "Presentar demanda",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ProcesoID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			if cmd.Flags().Changed("cuantia") {
				opts.Cuantia = &cuantia
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				d, efectos, err := e.PresentarDemanda(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"demanda": d, "efectos": efectos})
			})
		},
	}
	cmd.Flags().StringVar(&opts.Hechos, "hechos", "", "relacion de hechos")
	cmd.Flags().StringVar(&opts.Petitorio, "petitorio", "", "petitorio")
	cmd.Flags().StringArrayVar(&opts.Pruebas, "prueba", []string{}, "prueba ofrecida (repeatable)")
	cmd.Flags().Float64Var(&cuantia, "cuantia", 0, "cuantia en Bs")
	_ = cmd.MarkFlagRequired("hechos")
	_ = cmd.MarkFlagRequired("petitorio")
	return cmd
}

func demandaObservarCmd() *cobra.Command {
	var opts engine.ObservarDemandaOptions
	cmd := &cobra.Command{
		Use:   "observar <proceso-id>",
		Short: "Observar demanda and open plazo de subsanacion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ProcesoID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				p, efectos, err := e.ObservarDemanda(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"proceso": p, "efectos": efectos})
			})
		},
	}
	cmd.Flags().StringVar(&opts.Observaciones, "observaciones", "", "defectos a subsanar")
	cmd.Flags().IntVar(&opts.Dias, "dias", 0, "plazo en dias (config default if omitted)")
	_ = cmd.MarkFlagRequired("observaciones")
	return cmd
}

func demandaSubsanarCmd() *cobra.Command {
	var opts engine.SubsanarDemandaOptions
	var cuantia float64
	cmd := &cobra.Command{
		Use:   "subsanar <proceso-id>",
		Short: "File the corrected demanda",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ProcesoID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			if cmd.Flags().Changed("cuantia") {
				opts.Cuantia = &cuantia
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				d, efectos, err := e.SubsanarDemanda(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"demanda": d, "efectos": efectos})
			})
		},
	}
	cmd.Flags().StringVar(&opts.Hechos, "hechos", "", "relacion de hechos")
	cmd.Flags().StringVar(&opts.Petitorio, "petitorio", "", "petitorio")
	cmd.Flags().StringArrayVar(&opts.Pruebas, "prueba", []string{}, "prueba ofrecida (repeatable)")
	cmd.Flags().Float64Var(&cuantia, "cuantia", 0, "cuantia en Bs")
	_ = cmd.MarkFlagRequired("hechos")
	_ = cmd.MarkFlagRequired("petitorio")
	return cmd
}

func demandaAdmitirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admitir <proceso-id>",
		Short: "Admitir demanda and assign the NUREJ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				p, efectos, err := e.AdmitirDemanda(ctx, engine.AdmitirDemandaOptions{
					ProcesoID: args[0],
					ActorID:   viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"proceso": p, "efectos": efectos})
			})
		},
	}
	return cmd
}

func demandaRechazarCmd() *cobra.Command {
	var motivo string
	cmd := &cobra.Command{
		Use:   "rechazar <proceso-id>",
		Short: "Rechazar demanda with an auto definitivo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				p, efectos, err := e.RechazarDemanda(ctx, engine.RechazarDemandaOptions{
					ProcesoID: args[0],
					Motivo:    motivo,
					ActorID:   viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"proceso": p, "efectos": efectos})
			})
		},
	}
	cmd.Flags().StringVar(&motivo, "motivo", "", "motivo del rechazo")
	_ = cmd.MarkFlagRequired("motivo")
	return cmd
}

func citacionCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "citacion",
		Short: "Manage citaciones",
		Long:  "Service of process: ordenar a citacion, register failed intentos (three failures recommend citacion por edicto), and register the successful one, which opens the plazo de contestacion.",
	}
	c.AddCommand(citacionOrdenarCmd())
	c.AddCommand(citacionIntentoCmd())
	c.AddCommand(citacionExitoCmd())
	c.AddCommand(citacionListCmd())
	return c
}

func citacionOrdenarCmd() *cobra.Command {
	var opts engine.OrdenarCitacionOptions
	cmd := &cobra.Command{
		Use:   "ordenar <proceso-id>",
		Short: "Ordenar citacion al demandado",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ProcesoID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				c, efectos, err := e.OrdenarCitacion(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"citacion": c, "efectos": efectos})
			})
		},
	}
	cmd.Flags().StringVar(&opts.Tipo, "tipo", "PERSONAL", "tipo (PERSONAL, CEDULA, EDICTO, TACITA)")
	cmd.Flags().StringVar(&opts.Direccion, "direccion", "", "direccion de diligencia")
	return cmd
}

func citacionIntentoCmd() *cobra.Command {
	var opts engine.RegistrarIntentoOptions
	cmd := &cobra.Command{
		Use:   "intento <citacion-id>",
		Short: "Register a failed service attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.CitacionID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				c, efectos, err := e.RegistrarIntentoCitacion(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"citacion": c, "efectos": efectos})
			})
		},
	}
	cmd.Flags().StringVar(&opts.Fecha, "fecha", "", "fecha del intento (YYYY-MM-DD, today if omitted)")
	cmd.Flags().StringVar(&opts.Motivo, "motivo", "", "motivo del fracaso")
	_ = cmd.MarkFlagRequired("motivo")
	return cmd
}

func citacionExitoCmd() *cobra.Command {
	var opts engine.RegistrarExitosaOptions
	cmd := &cobra.Command{
		Use:   "exito <citacion-id>",
		Short: "Register successful service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.CitacionID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				c, efectos, err := e.RegistrarCitacionExitosa(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"citacion": c, "efectos": efectos})
			})
		},
	}
	cmd.Flags().StringVar(&opts.Fecha, "fecha", "", "fecha de la citacion (YYYY-MM-DD, today if omitted)")
	return cmd
}

func citacionListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <proceso-id>",
		Short: "List citaciones of a proceso",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.Repo.ListCitaciones(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func contestacionCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "contestacion",
		Short: "Manage contestaciones",
		Long:  "The demandado answers with exactly one variante: negacion, allanamiento, excepcion previa or reconvencion, passed as a JSON document.",
	}
	c.AddCommand(contestacionPresentarCmd())
	c.AddCommand(contestacionResolverCmd())
	return c
}

func contestacionPresentarCmd() *cobra.Command {
	var negacionJSON, allanamientoJSON, excepcionJSON, reconvencionJSON string
	cmd := &cobra.Command{
		Use:   "presentar <proceso-id>",
		Short: "Presentar contestacion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.PresentarContestacionOptions{
				ProcesoID: args[0],
				ActorID:   viper.GetString("actor-id"),
			}
			if negacionJSON != "" {
				var v domain.Negacion
				if err := json.Unmarshal([]byte(negacionJSON), &v); err != nil {
					return fmt.Errorf("--negacion-json: %w", err)
				}
				opts.Negacion = &v
			}
			if allanamientoJSON != "" {
				var v domain.Allanamiento
				if err := json.Unmarshal([]byte(allanamientoJSON), &v); err != nil {
					return fmt.Errorf("--allanamiento-json: %w", err)
				}
				opts.Allanamiento = &v
			}
			if excepcionJSON != "" {
				var v domain.ExcepcionPrevia
				if err := json.Unmarshal([]byte(excepcionJSON), &v); err != nil {
					return fmt.Errorf("--excepcion-json: %w", err)
				}
				opts.Excepcion = &v
			}
			if reconvencionJSON != "" {
				var v domain.Reconvencion
				if err := json.Unmarshal([]byte(reconvencionJSON), &v); err != nil {
					return fmt.Errorf("--reconvencion-json: %w", err)
				}
				opts.Reconvencion = &v
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				c, efectos, err := e.PresentarContestacion(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"contestacion": c, "efectos": efectos})
			})
		},
	}
	cmd.Flags().StringVar(&negacionJSON, "negacion-json", "", "negacion JSON")
	cmd.Flags().StringVar(&allanamientoJSON, "allanamiento-json", "", "allanamiento JSON")
	cmd.Flags().StringVar(&excepcionJSON, "excepcion-json", "", "excepcion previa JSON")
	cmd.Flags().StringVar(&reconvencionJSON, "reconvencion-json", "", "reconvencion JSON")
	return cmd
}

func contestacionResolverCmd() *cobra.Command {
	var opts engine.ResolverExcepcionOptions
	cmd := &cobra.Command{
		Use:   "resolver-excepcion <contestacion-id>",
		Short: "Resolve a pending excepcion previa",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ContestacionID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				c, efectos, err := e.ResolverExcepcion(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"contestacion": c, "efectos": efectos})
			})
		},
	}
	cmd.Flags().BoolVar(&opts.Fundada, "fundada", false, "declare the excepcion fundada")
	cmd.Flags().StringVar(&opts.Fundamento, "fundamento", "", "fundamento de la decision")
	_ = cmd.MarkFlagRequired("fundamento")
	return cmd
}

func audienciaCmd() *cobra.Command {
	a := &cobra.Command{
		Use:   "audiencia",
		Short: "Manage audiencias",
		Long:  "Audiencias preliminar and complementaria advance the causa; closing a realizada complementaria (or a preliminar with --directo-a-sentencia) leaves it lista para sentencia.",
	}
	a.AddCommand(audienciaProgramarCmd())
	a.AddCommand(audienciaCerrarCmd())
	a.AddCommand(audienciaListCmd())
	return a
}

func audienciaProgramarCmd() *cobra.Command {
	var opts engine.ProgramarAudienciaOptions
	var asistentes []string
	cmd := &cobra.Command{
		Use:   "programar <proceso-id>",
		Short: "Programar audiencia",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ProcesoID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			for _, a := range asistentes {
				actorID, rol, _ := strings.Cut(a, ":")
				opts.Asistentes = append(opts.Asistentes, engine.AsistenteInput{
					ActorID:     actorID,
					Rol:         rol,
					Obligatorio: true,
				})
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				a, efectos, err := e.ProgramarAudiencia(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"audiencia": a, "efectos": efectos})
			})
		},
	}
	cmd.Flags().StringVar(&opts.Tipo, "tipo", "PRELIMINAR", "tipo (PRELIMINAR, COMPLEMENTARIA, CONCILIACION)")
	cmd.Flags().StringVar(&opts.Modalidad, "modalidad", "PRESENCIAL", "modalidad (PRESENCIAL, VIRTUAL)")
	cmd.Flags().StringVar(&opts.Fecha, "fecha", "", "fecha y hora RFC3339")
	cmd.Flags().StringVar(&opts.Enlace, "enlace", "", "enlace for audiencia virtual")
	cmd.Flags().StringArrayVar(&asistentes, "asistente", []string{}, "asistente actor-id[:rol] (repeatable)")
	_ = cmd.MarkFlagRequired("fecha")
	return cmd
}

func audienciaCerrarCmd() *cobra.Command {
	var estado, actaJSON string
	var directo bool
	var asistencia []string
	cmd := &cobra.Command{
		Use:   "cerrar <audiencia-id>",
		Short: "Close an audiencia",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.CerrarAudienciaOptions{
				AudienciaID:       args[0],
				Estado:            estado,
				DirectoASentencia: directo,
				ActorID:           viper.GetString("actor-id"),
			}
			if actaJSON != "" {
				if err := json.Unmarshal([]byte(actaJSON), &opts.Acta); err != nil {
					return fmt.Errorf("--acta-json: %w", err)
				}
			}
			if len(asistencia) > 0 {
				opts.Asistencia = map[string]bool{}
				for _, a := range asistencia {
					actorID, presente, found := strings.Cut(a, "=")
					opts.Asistencia[actorID] = !found || presente == "true"
				}
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				a, efectos, err := e.CerrarAudiencia(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"audiencia": a, "efectos": efectos})
			})
		},
	}
	cmd.Flags().StringVar(&estado, "estado", "REALIZADA", "estado final (REALIZADA, SUSPENDIDA, CANCELADA)")
	cmd.Flags().StringVar(&actaJSON, "acta-json", "", "acta JSON (required for REALIZADA)")
	cmd.Flags().BoolVar(&directo, "directo-a-sentencia", false, "skip the complementaria after a realizada preliminar")
	cmd.Flags().StringArrayVar(&asistencia, "asistencia", []string{}, "asistencia actor-id=true|false (repeatable)")
	return cmd
}

func audienciaListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <proceso-id>",
		Short: "List audiencias of a proceso",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.Repo.ListAudiencias(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func resolucionCmd() *cobra.Command {
	r := &cobra.Command{
		Use:   "resolucion",
		Short: "Manage resoluciones",
		Long:  "Resoluciones carry vistos, considerando and por tanto, with a SHA-256 documento hash. Notification freezes them; an unnotified one can be deleted within the config window.",
	}
	r.AddCommand(resolucionEmitirCmd())
	r.AddCommand(resolucionModificarCmd())
	r.AddCommand(resolucionNotificarCmd())
	r.AddCommand(resolucionEliminarCmd())
	r.AddCommand(resolucionListCmd())
	return r
}

func resolucionEmitirCmd() *cobra.Command {
	var opts engine.EmitirResolucionOptions
	cmd := &cobra.Command{
		Use:   "emitir <proceso-id>",
		Short: "Emitir resolucion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ProcesoID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				res, err := e.EmitirResolucion(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Tipo, "tipo", "PROVIDENCIA", "tipo (PROVIDENCIA, AUTO_INTERLOCUTORIO, AUTO_DEFINITIVO)")
	cmd.Flags().StringVar(&opts.Vistos, "vistos", "", "vistos")
	cmd.Flags().StringVar(&opts.Considerando, "considerando", "", "considerando")
	cmd.Flags().StringVar(&opts.PorTanto, "por-tanto", "", "por tanto")
	_ = cmd.MarkFlagRequired("vistos")
	_ = cmd.MarkFlagRequired("considerando")
	_ = cmd.MarkFlagRequired("por-tanto")
	return cmd
}

func resolucionModificarCmd() *cobra.Command {
	var opts engine.ModificarResolucionOptions
	cmd := &cobra.Command{
		Use:   "modificar <resolucion-id>",
		Short: "Rewrite an unnotified resolucion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ResolucionID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				res, err := e.ModificarResolucion(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Vistos, "vistos", "", "vistos")
	cmd.Flags().StringVar(&opts.Considerando, "considerando", "", "considerando")
	cmd.Flags().StringVar(&opts.PorTanto, "por-tanto", "", "por tanto")
	_ = cmd.MarkFlagRequired("vistos")
	_ = cmd.MarkFlagRequired("considerando")
	_ = cmd.MarkFlagRequired("por-tanto")
	return cmd
}

func resolucionNotificarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notificar <resolucion-id>",
		Short: "Notify the parties and freeze the resolucion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				res, efectos, err := e.NotificarResolucion(ctx, engine.NotificarResolucionOptions{
					ResolucionID: args[0],
					ActorID:      viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"resolucion": res, "efectos": efectos})
			})
		},
	}
	return cmd
}

func resolucionEliminarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eliminar <resolucion-id>",
		Short: "Delete an unnotified resolucion within the window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.EliminarResolucion(ctx, engine.EliminarResolucionOptions{
					ResolucionID: args[0],
					ActorID:      viper.GetString("actor-id"),
				})
			})
		},
	}
	return cmd
}

func resolucionListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <proceso-id>",
		Short: "List resoluciones of a proceso",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.Repo.ListResoluciones(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func sentenciaCmd() *cobra.Command {
	s := &cobra.Command{Use: "sentencia", Short: "Manage sentencias"}
	s.AddCommand(sentenciaEmitirCmd())
	s.AddCommand(sentenciaGetCmd())
	return s
}

func sentenciaEmitirCmd() *cobra.Command {
	var opts engine.EmitirSentenciaOptions
	cmd := &cobra.Command{
		Use:   "emitir <proceso-id>",
		Short: "Emitir sentencia and archive the proceso",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ProcesoID = args[0]
			opts.ActorID = viper.GetString("actor-id")
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				s, efectos, err := e.EmitirSentencia(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"sentencia": s, "efectos": efectos})
			})
		},
	}
	cmd.Flags().StringVar(&opts.Vistos, "vistos", "", "vistos")
	cmd.Flags().StringVar(&opts.Considerando, "considerando", "", "considerando")
	cmd.Flags().StringVar(&opts.PorTanto, "por-tanto", "", "por tanto")
	cmd.Flags().StringVar(&opts.Decision, "decision", "", "decision (PROBADA, PROBADA_EN_PARTE, IMPROBADA)")
	_ = cmd.MarkFlagRequired("vistos")
	_ = cmd.MarkFlagRequired("considerando")
	_ = cmd.MarkFlagRequired("por-tanto")
	_ = cmd.MarkFlagRequired("decision")
	return cmd
}

func sentenciaGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <proceso-id>",
		Short: "Get the sentencia of a proceso",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				s, err := e.Repo.GetSentenciaByProceso(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	return cmd
}

func plazosCmd() *cobra.Command {
	p := &cobra.Command{
		Use:   "plazos",
		Short: "Manage plazos procesales",
		Long:  "Plazos run on calendar days. 'barrer' marks every plazo whose vencimiento has passed as VENCIDO and notifies its destinatario.",
	}
	p.AddCommand(plazosListCmd())
	p.AddCommand(plazosBarrerCmd())
	return p
}

func plazosListCmd() *cobra.Command {
	var f repo.PlazoFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plazos",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.Repo.ListPlazos(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Proceso", "Tipo", "Destinatario", "Vence", "Estado"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.ProcesoID, p.Tipo, p.DestinatarioID, p.FechaVencimiento, p.Estado})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProcesoID, "proceso", "", "proceso filter")
	cmd.Flags().StringVar(&f.Estado, "estado", "", "estado filter")
	cmd.Flags().StringVar(&f.Tipo, "tipo", "", "tipo filter")
	cmd.Flags().StringVar(&f.DestinatarioID, "destinatario", "", "destinatario filter")
	return cmd
}

func plazosBarrerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "barrer",
		Short: "Mark overdue plazos as VENCIDO",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				vencidos, efectos, err := e.MarcarPlazosVencidos(ctx, engine.BarrerPlazosOptions{
					ActorID: viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"vencidos": vencidos, "efectos": efectos})
			})
		},
	}
	return cmd
}

func notificacionCmd() *cobra.Command {
	n := &cobra.Command{Use: "notificacion", Short: "Manage notificaciones"}
	n.AddCommand(notificacionListCmd())
	n.AddCommand(notificacionLeerCmd())
	return n
}

func notificacionListCmd() *cobra.Command {
	var proceso string
	var noLeidas bool
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notificaciones of the acting actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.Repo.ListNotificaciones(ctx, repo.NotificacionFilters{
					DestinatarioID: viper.GetString("actor-id"),
					ProcesoID:      proceso,
					SoloNoLeidas:   noLeidas,
				}, limit)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&proceso, "proceso", "", "proceso filter")
	cmd.Flags().BoolVar(&noLeidas, "no-leidas", false, "only unread")
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	return cmd
}

func notificacionLeerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leer <id>",
		Short: "Mark a notificacion as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				n, err := e.Repo.MarcarNotificacionLeida(ctx, args[0], time.Now().UTC().Format(time.RFC3339))
				if err != nil {
					return err
				}
				return printJSONOrTable(n)
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	lg := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened in the juzgado: filings, estado changes, citaciones, resoluciones and more.",
	}
	lg.AddCommand(logTailCmd())
	return lg
}

func logTailCmd() *cobra.Command {
	var n int
	var tipo, proceso, entidad, entidadID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail eventos",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				eventos, err := e.Repo.LatestEventos(ctx, n, proceso, tipo, entidad, entidadID)
				if err != nil {
					return err
				}
				return printJSONOrTable(eventos)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of eventos")
	cmd.Flags().StringVar(&tipo, "tipo", "", "evento tipo filter")
	cmd.Flags().StringVar(&proceso, "proceso", "", "proceso filter")
	cmd.Flags().StringVar(&entidad, "entidad", "", "entidad filter")
	cmd.Flags().StringVar(&entidadID, "entidad-id", "", "entidad id filter")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowLegacyActorHeader bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			_, cfg, err := app.ResolveJuzgadoAndConfig(cmd.Context(), workspace, viper.GetString("juzgado"), r)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{
				JWTSecret:              os.Getenv("EXPEDIENTES_JWT_SECRET"),
				AllowLegacyActorHeader: allowLegacyActorHeader,
			}
			if authCfg.JWTSecret == "" && !allowLegacyActorHeader {
				return fmt.Errorf("EXPEDIENTES_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			server.StartWebhookDispatcher(e)
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Expedientes API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&allowLegacyActorHeader, "allow-legacy-actor-header", false, "accept unauthenticated X-Actor-Id (dev only)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, *engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	_, cfg, err := app.ResolveJuzgadoAndConfig(ctx, workspace, viper.GetString("juzgado"), r)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
