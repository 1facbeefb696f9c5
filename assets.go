package helio

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

type AssetId string

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}

// maxTextureDim is the largest texture edge the backend accepts; larger
// images are downscaled on load.
const maxTextureDim = 4096

// TextureData is decoded CPU-side texel data awaiting GPU upload.
type TextureData struct {
	Name   string
	Texels []uint8
	Width  uint32
	Height uint32
	Format Format
}

// AssetServer owns decoded content: texture data, materials and meshes.
// Loaded GPU textures are created through the Device and cached by asset id.
type AssetServer struct {
	textures  map[AssetId]*TextureData
	materials map[AssetId]*Material
	meshes    map[AssetId]*Mesh
	gpu       map[AssetId]Texture
}

type AssetServerModule struct{}

func (AssetServerModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&AssetServer{
		textures:  make(map[AssetId]*TextureData),
		materials: make(map[AssetId]*Material),
		meshes:    make(map[AssetId]*Mesh),
		gpu:       make(map[AssetId]Texture),
	})
}

// CreateTexture registers raw texel data under a fresh asset id.
func (server *AssetServer) CreateTexture(name string, texels []uint8, width, height uint32, format Format) AssetId {
	id := makeAssetId()
	server.textures[id] = &TextureData{
		Name:   name,
		Texels: texels,
		Width:  width,
		Height: height,
		Format: format,
	}
	return id
}

// LoadTexture decodes a PNG file into RGBA8 texel data, downscaling when an
// edge exceeds the backend dimension cap.
func (server *AssetServer) LoadTexture(filename string) (AssetId, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", filename, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width > maxTextureDim || height > maxTextureDim {
		scale := float64(maxTextureDim) / float64(max(width, height))
		dstW := int(float64(width) * scale)
		dstH := int(float64(height) * scale)
		scaled := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, draw.Src, nil)
		img = scaled
		bounds = scaled.Bounds()
		width, height = dstW, dstH
	}

	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(bounds)
		draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	}

	id := server.CreateTexture(filename, rgba.Pix, uint32(width), uint32(height), FormatRGBA8Unorm)
	return id, nil
}

// TextureData returns the decoded data for an asset, or nil when unknown.
func (server *AssetServer) TextureData(id AssetId) *TextureData {
	return server.textures[id]
}

// GPUTexture uploads a decoded texture through the device, caching the
// result. Repeat calls return the cached handle.
func (server *AssetServer) GPUTexture(id AssetId, device Device) (Texture, error) {
	if t, ok := server.gpu[id]; ok {
		return t, nil
	}
	data, ok := server.textures[id]
	if !ok {
		return nil, fmt.Errorf("unknown texture asset %s", id)
	}
	t, err := device.CreateTexture(data.Name, data.Width, data.Height, data.Format, data.Texels)
	if err != nil {
		return nil, err
	}
	server.gpu[id] = t
	return t, nil
}

// AddMaterial registers a material and returns its asset id.
func (server *AssetServer) AddMaterial(m *Material) AssetId {
	id := makeAssetId()
	server.materials[id] = m
	return id
}

func (server *AssetServer) Material(id AssetId) *Material {
	return server.materials[id]
}

// AddMesh registers a mesh and returns its asset id.
func (server *AssetServer) AddMesh(m *Mesh) AssetId {
	id := makeAssetId()
	server.meshes[id] = m
	return id
}

func (server *AssetServer) Mesh(id AssetId) *Mesh {
	return server.meshes[id]
}
