package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Errores de configuración del catálogo: fatales en la carga.
	ErrCyclicDependency = errors.New("dependencia cíclica entre módulos")
	ErrUnknownModule    = errors.New("módulo desconocido")

	ErrIncompleteOverrides = errors.New("la tabla de overrides debe incluir todos los módulos")
	ErrInactivePlan        = errors.New("el plan no está activo")
	ErrInvalidDateRange    = errors.New("rango de fechas inválido")

	// ErrSnapshotUnavailable indica que los datos de la tienda no pudieron obtenerse;
	// el llamador debe tratarlo como "matriz aún no disponible", nunca como todo deshabilitado.
	ErrSnapshotUnavailable = errors.New("matriz de módulos no disponible")
)
