package mmdbreader

import "github.com/mmdbkit/mmdbreader/mmdbdata"

// Decoder provides methods for decoding MaxMind DB data values.
// This interface is passed to UnmarshalMaxMindDB methods to allow
// custom decoding logic that avoids reflection for performance-critical applications.
//
// Types implementing Unmarshaler will automatically use custom decoding logic
// instead of reflection when used with Reader.Lookup, providing better performance
// for performance-critical applications.
//
// Example:
//
//	type City struct {
//		Names     map[string]string
//		GeoNameID uint32
//	}
//
//	func (c *City) UnmarshalMaxMindDB(d *mmdbreader.Decoder) error {
//		return d.DecodeMap(func(key string, value *mmdbreader.Decoder) (bool, error) {
//			switch key {
//			case "names":
//				c.Names = make(map[string]string)
//				err := value.DecodeMap(func(lang string, v *mmdbreader.Decoder) (bool, error) {
//					s, err := v.DecodeString()
//					c.Names[lang] = s
//					return true, err
//				})
//				return true, err
//			case "geoname_id":
//				id, err := value.DecodeUInt32()
//				c.GeoNameID = id
//				return true, err
//			default:
//				return true, nil
//			}
//		})
//	}
type Decoder = mmdbdata.Decoder

// Unmarshaler is implemented by types that can unmarshal MaxMind DB data.
// This follows the same pattern as json.Unmarshaler and other Go standard library interfaces.
type Unmarshaler = mmdbdata.Unmarshaler
