package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/passgrant/internal/app"
	"github.com/dropDatabas3/passgrant/internal/domain/repository"
	"github.com/dropDatabas3/passgrant/internal/oauth"
	"github.com/dropDatabas3/passgrant/internal/security/password"
	"github.com/dropDatabas3/passgrant/internal/security/totp"
)

// opener abre el container según el config path.
type opener func(ctx context.Context, configPath string) (*app.Container, error)

type cli struct {
	open       opener
	configPath string
	out        string // "json" | "text"
}

// withContainer abre el container, corre fn y lo cierra.
func (c *cli) withContainer(cmd *cobra.Command, fn func(ctx context.Context, ct *app.Container) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ct, err := c.open(ctx, c.configPath)
	if err != nil {
		return err
	}
	defer ct.Close()
	return fn(ctx, ct)
}

func (c *cli) print(w io.Writer, v any, text string) {
	if c.out == "json" {
		b, _ := json.MarshalIndent(v, "", "  ")
		fmt.Fprintln(w, string(b))
		return
	}
	fmt.Fprintln(w, text)
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:           "passgrantctl",
		Short:         "CLI admin de passgrant (opera directo sobre el store)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", envOr("CONFIG_PATH", ""), "Ruta al config.yaml (env CONFIG_PATH)")
	root.PersistentFlags().StringVar(&c.out, "out", envOr("PASSGRANT_OUT", "text"), "Formato de salida: json|text")

	root.AddCommand(
		c.migrateCmd(),
		c.clientCmd(),
		c.userCmd(),
		c.registrationCmd(),
		c.totpCmd(),
		c.tokenCmd(),
		c.tokensCmd(),
		c.hashCmd(),
	)
	return root
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplicar migraciones pendientes (postgres)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withContainer(cmd, func(ctx context.Context, ct *app.Container) error {
				if err := ct.Stores.Migrate(ctx); err != nil {
					return err
				}
				v, err := ct.Stores.SchemaVersion(ctx)
				if err != nil {
					return err
				}
				c.print(cmd.OutOrStdout(), map[string]any{"driver": ct.Stores.Driver, "version": v},
					fmt.Sprintf("driver=%s schema_version=%d", ct.Stores.Driver, v))
				return nil
			})
		},
	}
}

func (c *cli) clientCmd() *cobra.Command {
	var in repository.CreateClientInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Registrar un cliente OAuth",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.ID == "" || in.Secret == "" {
				return fmt.Errorf("--id y --secret son requeridos")
			}
			for _, g := range in.GrantTypes {
				if g != repository.GrantPassword && g != repository.GrantRefreshToken {
					return fmt.Errorf("grant type no soportado: %s", g)
				}
			}
			return c.withContainer(cmd, func(ctx context.Context, ct *app.Container) error {
				cl, err := ct.Stores.Clients.Create(ctx, in)
				if err != nil {
					return err
				}
				c.print(cmd.OutOrStdout(), cl, fmt.Sprintf("client %s grants=%s", cl.ID, strings.Join(cl.GrantTypes, ",")))
				return nil
			})
		},
	}
	add.Flags().StringVar(&in.ID, "id", "", "client_id")
	add.Flags().StringVar(&in.Name, "name", "", "Nombre descriptivo")
	add.Flags().StringVar(&in.Secret, "secret", "", "client_secret")
	add.Flags().StringSliceVar(&in.GrantTypes, "grant-type", []string{repository.GrantPassword, repository.GrantRefreshToken}, "Grant types permitidos")

	cmd := &cobra.Command{Use: "client", Short: "Operaciones sobre clientes"}
	cmd.AddCommand(add)
	return cmd
}

func (c *cli) userCmd() *cobra.Command {
	var (
		in        repository.CreateUserInput
		plain     string
		minLength int
		blacklist string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Crear un usuario",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Username == "" || in.Email == "" || plain == "" {
				return fmt.Errorf("--username, --email y --password son requeridos")
			}
			bl, err := password.LoadBlacklist(blacklist)
			if err != nil {
				return fmt.Errorf("blacklist: %w", err)
			}
			return c.withContainer(cmd, func(ctx context.Context, ct *app.Container) error {
				// Mismo máximo que aplica el password grant.
				policy := password.Policy{MinLength: minLength, MaxLength: ct.Config().OAuth.MaxPasswordLength, Blacklist: bl}
				if ok, reasons := policy.Validate(plain); !ok {
					return fmt.Errorf("contraseña rechazada: %s", strings.Join(reasons, ","))
				}
				hash, err := password.Hash(password.Default, plain)
				if err != nil {
					return err
				}
				in.PasswordHash = hash
				u, err := ct.Stores.Users.Create(ctx, in)
				if err != nil {
					return err
				}
				c.print(cmd.OutOrStdout(), map[string]any{"id": u.ID, "username": u.Username, "email": u.Email},
					fmt.Sprintf("user %s id=%s", u.Username, u.ID))
				return nil
			})
		},
	}
	add.Flags().StringVar(&in.Username, "username", "", "Username")
	add.Flags().StringVar(&in.Email, "email", "", "Email")
	add.Flags().StringVar(&plain, "password", "", "Contraseña en claro")
	add.Flags().BoolVar(&in.EmailVerified, "email-verified", false, "Marcar el email como verificado")
	add.Flags().IntVar(&minLength, "min-length", 10, "Largo mínimo de la contraseña")
	add.Flags().StringVar(&blacklist, "blacklist", "", "Archivo con contraseñas prohibidas, una por línea")

	cmd := &cobra.Command{Use: "user", Short: "Operaciones sobre usuarios"}
	cmd.AddCommand(add)
	return cmd
}

func (c *cli) registrationCmd() *cobra.Command {
	var (
		in    repository.CreateRegistrationInput
		state string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Crear una solicitud de alta (PENDING|REJECTED|ACCEPTED)",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.State = repository.RegistrationState(strings.ToUpper(state))
			switch in.State {
			case repository.RegistrationPending, repository.RegistrationRejected, repository.RegistrationAccepted:
			default:
				return fmt.Errorf("--state inválido: %s", state)
			}
			if in.Email == "" && in.Username == "" {
				return fmt.Errorf("--email o --username es requerido")
			}
			return c.withContainer(cmd, func(ctx context.Context, ct *app.Container) error {
				r, err := ct.Stores.Registrations.Create(ctx, in)
				if err != nil {
					return err
				}
				c.print(cmd.OutOrStdout(), r, fmt.Sprintf("registration %s state=%s", r.ID, r.State))
				return nil
			})
		},
	}
	add.Flags().StringVar(&in.Username, "username", "", "Username solicitado")
	add.Flags().StringVar(&in.Email, "email", "", "Email solicitado")
	add.Flags().StringVar(&state, "state", string(repository.RegistrationPending), "Estado")

	cmd := &cobra.Command{Use: "registration", Short: "Operaciones sobre solicitudes de alta"}
	cmd.AddCommand(add)
	return cmd
}

func (c *cli) totpCmd() *cobra.Command {
	var userID, account, issuer string
	enroll := &cobra.Command{
		Use:   "enroll",
		Short: "Generar y guardar un secreto TOTP para un usuario",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user-id es requerido")
			}
			_, secret, err := totp.GenerateSecret()
			if err != nil {
				return err
			}
			return c.withContainer(cmd, func(ctx context.Context, ct *app.Container) error {
				sealed, err := ct.Box.Seal(secret)
				if err != nil {
					return err
				}
				if err := ct.Stores.Users.SetOTPSecret(ctx, userID, sealed); err != nil {
					return err
				}
				name := account
				if name == "" {
					name = userID
				}
				uri := totp.OTPAuthURL(issuer, name, secret)
				c.print(cmd.OutOrStdout(), map[string]string{"user_id": userID, "secret": secret, "otpauth_url": uri}, uri)
				return nil
			})
		},
	}
	enroll.Flags().StringVar(&userID, "user-id", "", "ID del usuario")
	enroll.Flags().StringVar(&account, "account", "", "Nombre de cuenta en la app autenticadora (default: user-id)")
	enroll.Flags().StringVar(&issuer, "issuer", "passgrant", "Issuer en la app autenticadora")

	var disableID string
	disable := &cobra.Command{
		Use:   "disable",
		Short: "Quitar el TOTP de un usuario",
		RunE: func(cmd *cobra.Command, args []string) error {
			if disableID == "" {
				return fmt.Errorf("--user-id es requerido")
			}
			return c.withContainer(cmd, func(ctx context.Context, ct *app.Container) error {
				if err := ct.Stores.Users.SetOTPSecret(ctx, disableID, ""); err != nil {
					return err
				}
				c.print(cmd.OutOrStdout(), map[string]string{"user_id": disableID}, "ok")
				return nil
			})
		},
	}
	disable.Flags().StringVar(&disableID, "user-id", "", "ID del usuario")

	cmd := &cobra.Command{Use: "totp", Short: "Segundo factor"}
	cmd.AddCommand(enroll, disable)
	return cmd
}

// tokenCmd emite tokens con un bypass de contraseña: es el flujo de confianza
// del engine, pensado para soporte y automatizaciones.
func (c *cli) tokenCmd() *cobra.Command {
	var clientID, clientSecret, username, authName, otp string
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Emitir un par de tokens para un usuario sin su contraseña",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clientID == "" || clientSecret == "" || username == "" {
				return fmt.Errorf("--client-id, --client-secret y --username son requeridos")
			}
			return c.withContainer(cmd, func(ctx context.Context, ct *app.Container) error {
				req := &oauth.Request{
					Method:      http.MethodPost,
					ContentType: "application/x-www-form-urlencoded",
					Form: url.Values{
						"client_id":     {clientID},
						"client_secret": {clientSecret},
						"grant_type":    {repository.GrantPassword},
						"username":      {username},
					},
					Header:    http.Header{},
					IP:        "127.0.0.1",
					UserAgent: "passgrantctl",
				}
				if otp != "" {
					req.Header.Set(ct.Config().OAuth.OTPHeader, otp)
				}
				rec, err := ct.Engine.Token(ctx, req, oauth.TokenOptions{
					Bypass: &repository.Bypass{PluginName: "passgrantctl", AuthName: authName},
				})
				if err != nil {
					return err
				}
				out := map[string]any{
					"access_token":            rec.AccessToken,
					"access_token_expires_at": rec.AccessTokenExpiresAt.Format(time.RFC3339),
					"refresh_token":           rec.RefreshToken,
					"user_id":                 rec.UserID,
				}
				c.print(cmd.OutOrStdout(), out, rec.AccessToken)
				return nil
			})
		},
	}
	issue.Flags().StringVar(&clientID, "client-id", "", "client_id")
	issue.Flags().StringVar(&clientSecret, "client-secret", "", "client_secret")
	issue.Flags().StringVar(&username, "username", "", "Username o email")
	issue.Flags().StringVar(&authName, "auth-name", "", "Auth name a registrar en el token")
	issue.Flags().StringVar(&otp, "otp", "", "Código TOTP si el usuario tiene 2FA")

	cmd := &cobra.Command{Use: "token", Short: "Emisión de tokens"}
	cmd.AddCommand(issue)
	return cmd
}

func (c *cli) tokensCmd() *cobra.Command {
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Borrar tokens revocados o con refresh vencido",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withContainer(cmd, func(ctx context.Context, ct *app.Container) error {
				n, err := ct.Stores.Tokens.PurgeExpired(ctx, time.Now())
				if err != nil {
					return err
				}
				c.print(cmd.OutOrStdout(), map[string]int{"purged": n}, fmt.Sprintf("purged=%d", n))
				return nil
			})
		},
	}
	cmd := &cobra.Command{Use: "tokens", Short: "Mantenimiento de tokens"}
	cmd.AddCommand(purge)
	return cmd
}

func (c *cli) hashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <password>",
		Short: "Imprimir el hash argon2id de una contraseña",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := password.Hash(password.Default, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}
