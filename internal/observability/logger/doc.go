// Package logger provee un logger Zap de proceso con scoping por contexto.
//
// # Design Decisions
//
//   - Singleton: una sola instancia base inicializada con Init().
//   - Context Scoping: cada request lleva su propio logger "scoped" (request_id,
//     client_ip, ...) inyectado por middlewares.WithLogging.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//   - Nunca se loguean tokens ni contraseñas; usar ClientID/UserID/GrantType.
//
// # Usage
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("oauth.token.refresh"))
//	log.Warn("refresh token client mismatch", logger.ClientID(clientID))
package logger
