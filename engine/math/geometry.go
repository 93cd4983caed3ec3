package math

import "github.com/spaghettifunk/geostore/engine/core"

// GeometryGenerateNormals assigns face normals to every triangle of an indexed list.
func GeometryGenerateNormals(vertices []Vertex3D, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0 := indices[i+0]
		i1 := indices[i+1]
		i2 := indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)

		normal := edge1.Cross(edge2).Normalized()

		// NOTE: This just generates a face normal. Smoothing out should be done in a separate pass if desired.
		vertices[i0].Normal = normal
		vertices[i1].Normal = normal
		vertices[i2].Normal = normal
	}
}

func Vertex3dEqual(vert0 Vertex3D, vert1 Vertex3D) bool {
	return vert0.Position.Compare(vert1.Position, K_FLOAT_EPSILON) &&
		vert0.Normal.Compare(vert1.Normal, K_FLOAT_EPSILON) &&
		vert0.Texcoord.Compare(vert1.Texcoord, K_FLOAT_EPSILON) &&
		vert0.Colour.Compare(vert1.Colour, K_FLOAT_EPSILON)
}

func reassignIndex(indices []uint32, from uint32, to uint32) {
	for i := range indices {
		if indices[i] == from {
			indices[i] = to
		} else if indices[i] > from {
			// Pull in all indicies higher than 'from' by 1.
			indices[i]--
		}
	}
}

// GeometryDeduplicateVertices removes exact duplicate vertices, rewriting indices in place.
func GeometryDeduplicateVertices(vertices []Vertex3D, indices []uint32) []Vertex3D {
	uniqueVerts := make([]Vertex3D, 0, len(vertices))
	foundCount := uint32(0)

	for v := range vertices {
		found := false
		for u := range uniqueVerts {
			if Vertex3dEqual(vertices[v], uniqueVerts[u]) {
				// Reassign indices, do not copy
				reassignIndex(indices, uint32(v)-foundCount, uint32(u))
				found = true
				foundCount++
				break
			}
		}

		if !found {
			uniqueVerts = append(uniqueVerts, vertices[v])
		}
	}

	core.LogDebug("geometry_deduplicate_vertices: removed %d vertices, orig/now %d/%d.", len(vertices)-len(uniqueVerts), len(vertices), len(uniqueVerts))

	return uniqueVerts
}
