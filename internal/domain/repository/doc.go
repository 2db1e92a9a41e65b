// Package repository define las interfaces de repositorio de dominio que
// consume el grant engine (internal/oauth).
//
// Estas interfaces representan contratos de negocio, independientes del
// almacenamiento subyacente.
//
// Las implementaciones concretas viven en internal/store/memory (tests, dev)
// e internal/store/pg (producción).
//
// Arquitectura:
//
//	┌─────────────────────────────────────────────────────┐
//	│     http/controllers  ──►  oauth.Engine             │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│        domain/repository (interfaces)               │
//	│  ClientRepository, UserRepository,                  │
//	│  RegistrationRepository, TokenRepository            │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	               ┌────────┴────────┐
//	               ▼                 ▼
//	        ┌─────────────┐   ┌─────────────┐
//	        │ store/memory│   │  store/pg   │
//	        └─────────────┘   └─────────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - "No existe" se expresa con ErrNotFound, nunca con (nil, nil)
//   - Los tokens se persisten hasheados; un registro leído trae el valor
//     crudo que se usó para buscarlo
package repository
