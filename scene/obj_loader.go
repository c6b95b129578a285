package scene

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"clustered-deferred/core"
)

// objGroup is one mesh group of an OBJ file.
type objGroup struct {
	name     string
	material string
	vertices []core.Vertex
	indices  []uint32
	normals  bool // every vertex carried a vn
}

// LoadOBJ parses a Wavefront .obj file, with its mtllib materials, into a
// node holding one child per group.
func LoadOBJ(path string, log *zap.Logger) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open OBJ file: %w", err)
	}
	defer f.Close()
	return parseOBJ(f, filepath.Base(path), filepath.Dir(path), log)
}

func parseOBJ(r io.Reader, name, dir string, log *zap.Logger) (*Node, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var positions, normals []mgl32.Vec3
	var uvs []mgl32.Vec2

	var groups []*objGroup
	mats := make(map[string]*Material)
	cache := NewTextureCache()
	current := &objGroup{name: "default", normals: true}
	vertexMap := make(map[string]uint32) // "v/vt/vn" -> vertex index

	flush := func() {
		if len(current.indices) > 0 {
			groups = append(groups, current)
		}
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)

		switch parts[0] {
		case "v", "vn":
			if len(parts) < 4 {
				return nil, fmt.Errorf("%s:%d: %s needs 3 components", name, lineNo, parts[0])
			}
			v, err := parseFloats(parts[1:4])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", name, lineNo, err)
			}
			if parts[0] == "v" {
				positions = append(positions, mgl32.Vec3{v[0], v[1], v[2]})
			} else {
				normals = append(normals, mgl32.Vec3{v[0], v[1], v[2]})
			}
		case "vt":
			if len(parts) < 3 {
				return nil, fmt.Errorf("%s:%d: vt needs 2 components", name, lineNo)
			}
			v, err := parseFloats(parts[1:3])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", name, lineNo, err)
			}
			uvs = append(uvs, mgl32.Vec2{v[0], v[1]})
		case "f":
			faceVerts := make([]uint32, 0, len(parts)-1)
			for _, spec := range parts[1:] {
				if idx, ok := vertexMap[spec]; ok {
					faceVerts = append(faceVerts, idx)
					continue
				}
				v, hasNormal, err := parseFaceVertex(spec, positions, normals, uvs)
				if err != nil {
					return nil, fmt.Errorf("%s:%d: %w", name, lineNo, err)
				}
				current.normals = current.normals && hasNormal
				idx := uint32(len(current.vertices))
				current.vertices = append(current.vertices, v)
				vertexMap[spec] = idx
				faceVerts = append(faceVerts, idx)
			}
			// Fan triangulation
			for i := 2; i < len(faceVerts); i++ {
				current.indices = append(current.indices, faceVerts[0], faceVerts[i-1], faceVerts[i])
			}
		case "o", "g":
			flush()
			groupName := "unnamed"
			if len(parts) > 1 {
				groupName = parts[1]
			}
			current = &objGroup{name: groupName, material: current.material, normals: true}
			vertexMap = make(map[string]uint32)
		case "usemtl":
			if len(parts) > 1 {
				current.material = parts[1]
			}
		case "mtllib":
			if len(parts) > 1 {
				mtlPath := filepath.Join(dir, parts[1])
				loaded, err := LoadMTL(mtlPath, cache)
				if err != nil {
					log.Warn("failed to load MTL file", zap.String("path", mtlPath), zap.Error(err))
					continue
				}
				for k, m := range loaded {
					mats[k] = m
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	flush()
	if len(groups) == 0 {
		return nil, fmt.Errorf("%s: no mesh data found in OBJ file", name)
	}

	root := NewNode(name)
	for _, g := range groups {
		if !g.normals {
			computeNormals(g.vertices, g.indices)
		}
		mesh := CreateMeshFromData(g.name, g.vertices, g.indices)
		if m, ok := mats[g.material]; ok {
			mesh.Material = m
		} else if g.material != "" {
			log.Warn("unknown OBJ material", zap.String("material", g.material), zap.String("group", g.name))
		}
		n := NewNode(g.name)
		n.Mesh = mesh
		root.AddChild(n)
	}
	log.Info("OBJ loaded", zap.String("name", name), zap.Int("groups", len(groups)), zap.Int("materials", len(mats)))
	return root, nil
}

// LoadMTL parses a Wavefront .mtl material file. Diffuse and normal maps are
// loaded relative to the file through cache.
func LoadMTL(path string, cache *TextureCache) (map[string]*Material, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseMTL(f, filepath.Dir(path), cache)
}

func parseMTL(r io.Reader, dir string, cache *TextureCache) (map[string]*Material, error) {
	result := make(map[string]*Material)
	var current *Material

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)

		if parts[0] == "newmtl" {
			if len(parts) > 1 {
				current = NewMaterial(parts[1], core.ColorWhite)
				result[parts[1]] = current
			}
			continue
		}
		if current == nil {
			continue
		}
		switch parts[0] {
		case "Kd":
			if len(parts) >= 4 {
				c, err := parseFloats(parts[1:4])
				if err != nil {
					return nil, fmt.Errorf("material %s: %w", current.Name, err)
				}
				current.Albedo = core.Color{R: c[0], G: c[1], B: c[2], A: 1}
			}
		case "Ns":
			if len(parts) >= 2 {
				ns, err := parseFloats(parts[1:2])
				if err != nil {
					return nil, fmt.Errorf("material %s: %w", current.Name, err)
				}
				current.Shininess = max(ns[0], 1)
			}
		case "map_Kd":
			tex, err := cache.Load(filepath.Join(dir, parts[len(parts)-1]))
			if err != nil {
				return nil, fmt.Errorf("material %s: %w", current.Name, err)
			}
			current.AlbedoTexture = tex
		case "map_Bump", "map_bump", "bump", "norm":
			tex, err := cache.Load(filepath.Join(dir, parts[len(parts)-1]))
			if err != nil {
				return nil, fmt.Errorf("material %s: %w", current.Name, err)
			}
			current.NormalTexture = tex
		}
	}
	return result, scanner.Err()
}

func parseFloats(fields []string) ([]float32, error) {
	out := make([]float32, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(v)
	}
	return out, nil
}

// resolveIndex maps a 1-based (or negative, relative) OBJ index into [0, n).
func resolveIndex(field string, n int) (int, error) {
	idx, err := strconv.Atoi(field)
	if err != nil {
		return 0, err
	}
	if idx < 0 {
		idx = n + idx + 1
	}
	if idx <= 0 || idx > n {
		return 0, fmt.Errorf("index %s out of range (%d)", field, n)
	}
	return idx - 1, nil
}

// parseFaceVertex parses an OBJ face vertex spec like "v/vt/vn".
func parseFaceVertex(spec string, positions, normals []mgl32.Vec3, uvs []mgl32.Vec2) (core.Vertex, bool, error) {
	var v core.Vertex
	parts := strings.Split(spec, "/")

	i, err := resolveIndex(parts[0], len(positions))
	if err != nil {
		return v, false, fmt.Errorf("face position: %w", err)
	}
	v.Position = positions[i]

	if len(parts) >= 2 && parts[1] != "" {
		i, err := resolveIndex(parts[1], len(uvs))
		if err != nil {
			return v, false, fmt.Errorf("face uv: %w", err)
		}
		v.UV = uvs[i]
	}

	hasNormal := false
	if len(parts) >= 3 && parts[2] != "" {
		i, err := resolveIndex(parts[2], len(normals))
		if err != nil {
			return v, false, fmt.Errorf("face normal: %w", err)
		}
		v.Normal = normals[i]
		hasNormal = true
	}
	return v, hasNormal, nil
}

// computeNormals replaces vertex normals with area-weighted face normals.
func computeNormals(vertices []core.Vertex, indices []uint32) {
	for i := range vertices {
		vertices[i].Normal = mgl32.Vec3{}
	}
	for t := 0; t+2 < len(indices); t += 3 {
		a, b, c := indices[t], indices[t+1], indices[t+2]
		e1 := vertices[b].Position.Sub(vertices[a].Position)
		e2 := vertices[c].Position.Sub(vertices[a].Position)
		n := e1.Cross(e2)
		for _, k := range [3]uint32{a, b, c} {
			vertices[k].Normal = vertices[k].Normal.Add(n)
		}
	}
	for i := range vertices {
		if vertices[i].Normal.Len() > 0 {
			vertices[i].Normal = vertices[i].Normal.Normalize()
		} else {
			vertices[i].Normal = mgl32.Vec3{0, 1, 0}
		}
	}
}
