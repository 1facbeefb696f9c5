package helio

import "fmt"

// boundTexture is one occupied slot of the bindless texture table. A slot is
// free for reuse iff its reference count is zero; freed slots keep their
// position so resolved indices stay stable.
type boundTexture struct {
	texture Texture
	count   uint32
}

// addTexture resolves the material's texture of the given class to a
// bindless texture slot and sampler slot pair. Returns the unbound sentinel
// pair when the material carries no texture of that class.
//
// Samplers are deduplicated by descriptor equality and never reclaimed;
// textures are reference counted, sharing one slot across surfaces that
// reference the same texture object.
func (s *ForwardState) addTexture(material *Material, class TextureClass) (int32, int32) {
	info := material.TextureInfo(class)
	if info == nil {
		return UnboundTextureIndex, UnboundTextureIndex
	}

	samplerIndex := -1
	for i, existing := range s.samplers {
		if existing.Desc() == info.SamplerDesc {
			samplerIndex = i
			break
		}
	}
	if samplerIndex < 0 {
		sampler, err := s.device.CreateSampler("ForwardSampler", info.SamplerDesc)
		if err != nil {
			s.log.Warnf("could not create sampler for texture %s: %v", info.Texture.Name(), err)
			return UnboundTextureIndex, UnboundTextureIndex
		}
		s.samplers = append(s.samplers, sampler)
		samplerIndex = len(s.samplers) - 1
		if len(s.samplers) > BindlessSamplerSlots/2 {
			// Samplers are append-only; growth past half the slot budget
			// usually means content churns sampler descriptors.
			s.log.Warnf("forward sampler table at %d of %d slots and never reclaimed", len(s.samplers), BindlessSamplerSlots)
		}
	}

	firstFree := -1
	for i := range s.textures {
		bound := &s.textures[i]
		if bound.texture == info.Texture {
			bound.count++
			return int32(i), int32(samplerIndex)
		}
		if firstFree < 0 && bound.count == 0 {
			firstFree = i
		}
	}

	entry := boundTexture{texture: info.Texture, count: 1}
	if firstFree < 0 {
		s.textures = append(s.textures, entry)
		return int32(len(s.textures) - 1), int32(samplerIndex)
	}
	s.textures[firstFree] = entry
	return int32(firstFree), int32(samplerIndex)
}

// removeTexture drops one reference from a slot, clearing the handle when
// the count reaches zero. The slot itself stays in place for reuse. No-op
// for the unbound sentinel.
func (s *ForwardState) removeTexture(index int32) {
	if index < 0 {
		return
	}
	s.textures[index].count--
	if s.textures[index].count == 0 {
		s.textures[index].texture = nil
	}
}

// publishResourceTable rewrites every bindless texture and sampler slot into
// the parameter set, cleared slots included. The backend does not support
// partial updates of the table.
func (s *ForwardState) publishResourceTable() {
	if len(s.textures) > BindlessTextureSlots {
		panic(fmt.Sprintf("too many textures: %d of %d bindless slots", len(s.textures), BindlessTextureSlots))
	}
	for i := range s.textures {
		s.params.SetTextureSlot(s.textures[i].texture, ViewDim2D, uint32(i))
	}

	if len(s.samplers) > BindlessSamplerSlots {
		panic(fmt.Sprintf("too many samplers: %d of %d bindless slots", len(s.samplers), BindlessSamplerSlots))
	}
	for i, sampler := range s.samplers {
		s.params.SetSamplerSlot(sampler, uint32(i))
	}
}
