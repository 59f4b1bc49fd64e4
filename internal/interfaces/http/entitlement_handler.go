package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/entitlements-api/internal/application/dto"
	"github.com/jhoicas/entitlements-api/internal/application/entitlement"
	"github.com/jhoicas/entitlements-api/internal/domain"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

// EntitlementHandler expone catálogos, matriz efectiva, overrides, asignaciones y autorización.
type EntitlementHandler struct {
	svc *entitlement.Service
}

// NewEntitlementHandler construye el handler inyectando el servicio.
func NewEntitlementHandler(svc *entitlement.Service) *EntitlementHandler {
	return &EntitlementHandler{svc: svc}
}

// ListModules godoc
// @Summary      Catálogo de módulos
// @Tags         catalog
// @Produce      json
// @Success      200  {array}  dto.ModuleResponse
// @Router       /api/modules [get]
func (h *EntitlementHandler) ListModules(c *fiber.Ctx) error {
	modules := h.svc.Modules()
	out := make([]dto.ModuleResponse, 0, len(modules))
	for _, m := range modules {
		out = append(out, dto.ModuleResponse{
			Code:         string(m.Code),
			Name:         m.Name,
			DisplayOrder: m.DisplayOrder,
			IsActive:     m.IsActive,
			DependsOn:    codesToStrings(m.DependsOn),
		})
	}
	return c.JSON(out)
}

// ListPlans godoc
// @Summary      Catálogo de planes
// @Tags         catalog
// @Produce      json
// @Success      200  {array}  dto.PlanResponse
// @Router       /api/plans [get]
func (h *EntitlementHandler) ListPlans(c *fiber.Ctx) error {
	plans := h.svc.Plans()
	out := make([]dto.PlanResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, dto.PlanResponse{
			ID:       p.ID,
			Code:     p.Code,
			Name:     p.Name,
			Modules:  codesToStrings(p.ModuleCodes),
			IsActive: p.IsActive,
		})
	}
	return c.JSON(out)
}

// GetStoreModules godoc
// @Summary      Matriz efectiva de módulos de una tienda
// @Tags         stores
// @Produce      json
// @Param        storeID  path   string  true   "ID de la tienda"
// @Param        explain  query  bool    false  "Incluir motivos por módulo"
// @Success      200  {object}  dto.MatrixResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/stores/{storeID}/modules [get]
func (h *EntitlementHandler) GetStoreModules(c *fiber.Ctx) error {
	storeID := c.Params("storeID")
	if err := h.scopeStore(c, storeID); err != nil {
		return writeError(c, err)
	}
	return h.writeMatrix(c, storeID)
}

// GetMyModules godoc
// @Summary      Matriz efectiva de la tienda del token
// @Tags         stores
// @Produce      json
// @Success      200  {object}  dto.MatrixResponse
// @Router       /api/me/modules [get]
func (h *EntitlementHandler) GetMyModules(c *fiber.Ctx) error {
	storeID := GetStoreID(c)
	if storeID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_STORE", Message: "el token no incluye tienda"})
	}
	return h.writeMatrix(c, storeID)
}

func (h *EntitlementHandler) writeMatrix(c *fiber.Ctx, storeID string) error {
	res, err := h.svc.ResolveStore(c.UserContext(), storeID)
	if err != nil {
		return writeError(c, err)
	}
	entries := res.Matrix.Entries()
	out := dto.MatrixResponse{
		StoreID: storeID,
		Source:  string(res.Source),
		Modules: make(map[string]bool, len(entries)),
		Enabled: codesToStrings(res.Matrix.EnabledCodes()),
	}
	for code, on := range entries {
		out.Modules[string(code)] = on
	}
	if res.Plan != nil {
		out.PlanCode = res.Plan.Code
	}
	if res.Assignment != nil {
		out.AssignmentID = res.Assignment.ID
	}
	if c.QueryBool("explain", false) {
		out.Reasons = make(map[string]string, len(res.Reasons))
		for code, r := range res.Reasons {
			out.Reasons[string(code)] = string(r)
		}
		out.BlockedBy = make(map[string]string, len(res.BlockedBy))
		for code, dep := range res.BlockedBy {
			out.BlockedBy[string(code)] = string(dep)
		}
	}
	return c.JSON(out)
}

// GetOverrides godoc
// @Summary      Overrides de módulos de una tienda
// @Tags         stores
// @Produce      json
// @Param        storeID  path  string  true  "ID de la tienda"
// @Success      200  {object}  dto.OverridesResponse
// @Router       /api/stores/{storeID}/overrides [get]
func (h *EntitlementHandler) GetOverrides(c *fiber.Ctx) error {
	storeID := c.Params("storeID")
	if err := h.scopeStore(c, storeID); err != nil {
		return writeError(c, err)
	}
	list, err := h.svc.GetOverrides(c.UserContext(), storeID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toOverridesResponse(storeID, list))
}

// ReplaceOverrides godoc
// @Summary      Reemplazar la tabla completa de overrides
// @Tags         stores
// @Accept       json
// @Produce      json
// @Param        storeID  path  string                       true  "ID de la tienda"
// @Param        body     body  dto.ReplaceOverridesRequest  true  "Tabla completa"
// @Success      200  {object}  dto.OverridesResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/stores/{storeID}/overrides [put]
func (h *EntitlementHandler) ReplaceOverrides(c *fiber.Ctx) error {
	storeID := c.Params("storeID")
	if err := h.scopeStore(c, storeID); err != nil {
		return writeError(c, err)
	}
	var in dto.ReplaceOverridesRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	list := make([]entity.StoreModuleOverride, 0, len(in.Overrides))
	for _, o := range in.Overrides {
		list = append(list, entity.StoreModuleOverride{
			StoreID:    storeID,
			ModuleCode: entity.ModuleCode(o.ModuleCode),
			State:      entity.OverrideState(o.State),
			Reason:     o.Reason,
		})
	}
	saved, err := h.svc.ReplaceOverrides(c.UserContext(), storeID, list)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toOverridesResponse(storeID, saved))
}

// ListAssignments godoc
// @Summary      Historial de asignaciones de plan
// @Tags         enterprises
// @Produce      json
// @Param        enterpriseID  path   string  true   "ID de la empresa"
// @Param        limit         query  int     false  "Límite"  default(20)
// @Param        offset        query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.AssignmentListResponse
// @Router       /api/enterprises/{enterpriseID}/assignments [get]
func (h *EntitlementHandler) ListAssignments(c *fiber.Ctx) error {
	enterpriseID := c.Params("enterpriseID")
	if err := h.scopeEnterprise(c, enterpriseID); err != nil {
		return writeError(c, err)
	}
	page := dto.PageRequest{Limit: c.QueryInt("limit", dto.DefaultPageLimit), Offset: c.QueryInt("offset", 0)}
	page.DefaultPage()
	list, err := h.svc.ListAssignments(c.UserContext(), enterpriseID)
	if err != nil {
		return writeError(c, err)
	}
	total := len(list)
	start, end := page.Window(total)
	items := make([]dto.AssignmentResponse, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, h.toAssignmentResponse(&list[i]))
	}
	return c.JSON(dto.AssignmentListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	})
}

// CurrentAssignment godoc
// @Summary      Asignación vigente
// @Tags         enterprises
// @Produce      json
// @Param        enterpriseID  path  string  true  "ID de la empresa"
// @Success      200  {object}  dto.AssignmentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/enterprises/{enterpriseID}/assignments/current [get]
func (h *EntitlementHandler) CurrentAssignment(c *fiber.Ctx) error {
	enterpriseID := c.Params("enterpriseID")
	if err := h.scopeEnterprise(c, enterpriseID); err != nil {
		return writeError(c, err)
	}
	a, err := h.svc.CurrentAssignment(c.UserContext(), enterpriseID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(h.toAssignmentResponse(a))
}

// CreateAssignment godoc
// @Summary      Asignar un plan a la empresa
// @Tags         enterprises
// @Accept       json
// @Produce      json
// @Param        enterpriseID  path  string                       true  "ID de la empresa"
// @Param        body          body  dto.CreateAssignmentRequest  true  "Asignación"
// @Success      201  {object}  dto.AssignmentResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/enterprises/{enterpriseID}/assignments [post]
func (h *EntitlementHandler) CreateAssignment(c *fiber.Ctx) error {
	enterpriseID := c.Params("enterpriseID")
	if err := h.scopeEnterprise(c, enterpriseID); err != nil {
		return writeError(c, err)
	}
	var in dto.CreateAssignmentRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.PlanID == "" || in.StartsOn == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "plan_id y starts_on son requeridos"})
	}
	starts, err := time.Parse(dto.DateLayout, in.StartsOn)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "starts_on debe tener formato AAAA-MM-DD"})
	}
	var ends *time.Time
	if in.EndsOn != nil && *in.EndsOn != "" {
		e, err := time.Parse(dto.DateLayout, *in.EndsOn)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "ends_on debe tener formato AAAA-MM-DD"})
		}
		ends = &e
	}

	a, err := h.svc.CreateAssignment(c.UserContext(), entitlement.CreateAssignmentInput{
		EnterpriseID: enterpriseID,
		PlanID:       in.PlanID,
		Status:       entity.AssignmentStatus(in.Status),
		StartsOn:     starts,
		EndsOn:       ends,
		AutoRenew:    in.AutoRenew,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.toAssignmentResponse(a))
}

// Authorize godoc
// @Summary      Evaluar acceso a un destino de navegación
// @Tags         access
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AuthorizeRequest  true  "Destino"
// @Success      200  {object}  dto.AuthorizeResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/access/authorize [post]
func (h *EntitlementHandler) Authorize(c *fiber.Ctx) error {
	var in dto.AuthorizeRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "path es requerido"})
	}
	storeID := in.StoreID
	if storeID == "" {
		storeID = GetStoreID(c)
	} else if err := h.scopeStore(c, storeID); err != nil {
		return writeError(c, err)
	}

	d, err := h.svc.AuthorizePath(c.UserContext(), entitlement.AuthorizeInput{
		Session: GetSession(c),
		StoreID: storeID,
		Path:    in.Path,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.AuthorizeResponse{
		Decision:   string(d.Kind),
		RedirectTo: d.RedirectTo,
		Reason:     d.Reason,
		Module:     string(d.Module),
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Alcance por empresa
// ──────────────────────────────────────────────────────────────────────────────

// scopeStore exige que la tienda pertenezca a la empresa del token, salvo superusuario.
func (h *EntitlementHandler) scopeStore(c *fiber.Ctx, storeID string) error {
	if IsSuperuser(c) {
		return nil
	}
	owner, err := h.svc.StoreEnterprise(c.UserContext(), storeID)
	if err != nil {
		return err
	}
	return sameEnterprise(owner, GetEnterpriseID(c))
}

func (h *EntitlementHandler) scopeEnterprise(c *fiber.Ctx, enterpriseID string) error {
	if IsSuperuser(c) {
		return nil
	}
	return sameEnterprise(enterpriseID, GetEnterpriseID(c))
}

func sameEnterprise(owner, caller string) error {
	if owner == "" || owner != caller {
		return domain.ErrForbidden
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────

func (h *EntitlementHandler) toAssignmentResponse(a *entity.PlanAssignment) dto.AssignmentResponse {
	out := dto.AssignmentResponse{
		ID:           a.ID,
		EnterpriseID: a.EnterpriseID,
		PlanID:       a.PlanID,
		Status:       string(a.Status),
		StartsOn:     a.StartsOn.Format(dto.DateLayout),
		AutoRenew:    a.AutoRenew,
		CreatedAt:    a.CreatedAt,
	}
	if a.EndsOn != nil {
		s := a.EndsOn.Format(dto.DateLayout)
		out.EndsOn = &s
	}
	for _, p := range h.svc.Plans() {
		if p.ID == a.PlanID {
			out.PlanCode = p.Code
			break
		}
	}
	return out
}

func toOverridesResponse(storeID string, list []entity.StoreModuleOverride) dto.OverridesResponse {
	items := make([]dto.OverrideItem, 0, len(list))
	for _, o := range list {
		items = append(items, dto.OverrideItem{ModuleCode: string(o.ModuleCode), State: string(o.State), Reason: o.Reason})
	}
	return dto.OverridesResponse{StoreID: storeID, Overrides: items}
}

func codesToStrings(codes []entity.ModuleCode) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		out = append(out, string(c))
	}
	return out
}
