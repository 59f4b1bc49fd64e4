package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/entitlements-api/internal/domain/entitlement"
	"github.com/jhoicas/entitlements-api/internal/domain/entity"
)

// parseCatalog lee el XML del catálogo:
//
//	<catalogo>
//	  <modulo codigo="SELL" nombre="Ventas" orden="10" activo="true">
//	    <depende>CORE</depende>
//	  </modulo>
//	  <plan codigo="BASIC" nombre="Básico" activo="true">
//	    <modulo>CORE</modulo>
//	  </plan>
//	</catalogo>
//
// El resultado se valida con las mismas reglas que el arranque del servicio.
func parseCatalog(r io.Reader) ([]entity.Module, []entity.Plan, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		if strings.EqualFold(charset, "ISO-8859-1") || strings.EqualFold(charset, "ISO8859-1") {
			return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
		}
		if strings.EqualFold(charset, "windows-1252") {
			return transform.NewReader(input, charmap.Windows1252.NewDecoder()), nil
		}
		return input, nil
	}
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, nil, fmt.Errorf("decodificar XML: %w", err)
	}
	root := doc.SelectElement("catalogo")
	if root == nil {
		return nil, nil, fmt.Errorf("falta el elemento raíz <catalogo>")
	}

	var modules []entity.Module
	for _, el := range root.SelectElements("modulo") {
		m := entity.Module{
			Code:     entity.ModuleCode(strings.TrimSpace(el.SelectAttrValue("codigo", ""))),
			Name:     strings.TrimSpace(el.SelectAttrValue("nombre", "")),
			IsActive: el.SelectAttrValue("activo", "true") != "false",
		}
		if m.Code == "" || m.Name == "" {
			continue
		}
		if v := el.SelectAttrValue("orden", ""); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, nil, fmt.Errorf("módulo %s: orden %q inválido", m.Code, v)
			}
			m.DisplayOrder = n
		}
		for _, dep := range el.SelectElements("depende") {
			if code := strings.TrimSpace(dep.Text()); code != "" {
				m.DependsOn = append(m.DependsOn, entity.ModuleCode(code))
			}
		}
		modules = append(modules, m)
	}

	var plans []entity.Plan
	for _, el := range root.SelectElements("plan") {
		code := strings.TrimSpace(el.SelectAttrValue("codigo", ""))
		if code == "" {
			continue
		}
		p := entity.Plan{
			ID:       el.SelectAttrValue("id", entitlement.DefaultPlanID(code)),
			Code:     code,
			Name:     strings.TrimSpace(el.SelectAttrValue("nombre", code)),
			IsActive: el.SelectAttrValue("activo", "true") != "false",
		}
		for _, mod := range el.SelectElements("modulo") {
			if c := strings.TrimSpace(mod.Text()); c != "" {
				p.ModuleCodes = append(p.ModuleCodes, entity.ModuleCode(c))
			}
		}
		plans = append(plans, p)
	}

	moduleCatalog, err := entitlement.NewModuleCatalog(modules)
	if err != nil {
		return nil, nil, err
	}
	if _, err := entitlement.NewPlanCatalog(plans, moduleCatalog); err != nil {
		return nil, nil, err
	}
	return moduleCatalog.Modules(), plans, nil
}

// writeSQL escribe los INSERT idempotentes. Las dependencias y módulos de cada plan
// se reemplazan completos para que el script refleje exactamente el XML.
func writeSQL(w io.Writer, modules []entity.Module, plans []entity.Plan) error {
	var b strings.Builder
	b.WriteString("-- Catálogo de módulos y planes\n")
	b.WriteString("-- Generado por cmd/seed_catalog\n\n")

	b.WriteString("-- 1. Módulos\n")
	b.WriteString("INSERT INTO modules (code, name, display_order, is_active) VALUES\n")
	for i, m := range modules {
		fmt.Fprintf(&b, "  ('%s', '%s', %d, %t)", m.Code, escapeSQL(m.Name), m.DisplayOrder, m.IsActive)
		b.WriteString(sep(i, len(modules)))
	}
	b.WriteString("ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, display_order = EXCLUDED.display_order, is_active = EXCLUDED.is_active;\n\n")

	b.WriteString("-- 2. Dependencias\n")
	b.WriteString("DELETE FROM module_dependencies;\n")
	var edges [][2]entity.ModuleCode
	for _, m := range modules {
		for _, dep := range m.DependsOn {
			edges = append(edges, [2]entity.ModuleCode{m.Code, dep})
		}
	}
	if len(edges) > 0 {
		b.WriteString("INSERT INTO module_dependencies (module_code, depends_on) VALUES\n")
		for i, e := range edges {
			fmt.Fprintf(&b, "  ('%s', '%s')", e[0], e[1])
			b.WriteString(sep(i, len(edges)))
		}
		b.WriteString(";\n")
	}
	b.WriteString("\n")

	sorted := append([]entity.Plan(nil), plans...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	b.WriteString("-- 3. Planes\n")
	for _, p := range sorted {
		fmt.Fprintf(&b, "INSERT INTO plans (id, code, name, is_active) VALUES ('%s', '%s', '%s', %t)\n",
			p.ID, escapeSQL(p.Code), escapeSQL(p.Name), p.IsActive)
		b.WriteString("ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, is_active = EXCLUDED.is_active;\n")
		fmt.Fprintf(&b, "DELETE FROM plan_modules WHERE plan_id = (SELECT id FROM plans WHERE code = '%s');\n", escapeSQL(p.Code))
		for _, code := range p.ModuleCodes {
			fmt.Fprintf(&b, "INSERT INTO plan_modules (plan_id, module_code) SELECT id, '%s' FROM plans WHERE code = '%s';\n",
				code, escapeSQL(p.Code))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func sep(i, n int) string {
	if i < n-1 {
		return ",\n"
	}
	return "\n"
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
